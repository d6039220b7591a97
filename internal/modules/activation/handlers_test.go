package activation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// nowForTest pins "the current week" the handlers operate on
func nowForTest() time.Time { return time.Now().UTC() }

func testRouter(t *testing.T) (*chi.Mux, *Repository) {
	t.Helper()
	repo := testRepo(t)
	markets := []domain.Market{
		{Symbol: "XAUUSD", Name: "Gold", Spread: 0.30, SessionStart: 9, SessionEnd: 20},
		{Symbol: "US500", Name: "S&P 500", Spread: 0.50, SessionStart: 10, SessionEnd: 20},
	}
	h := NewHandlers(repo, markets, 6, 40, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.Routes(r)
	})
	return r, repo
}

func TestHandleGetConfigUnknownSymbol(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config/DOGE", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleGetConfigUnscoredWeekIsInactive(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config/XAUUSD", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp MarketConfigResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Active {
		t.Error("unscored week must report inactive, not an error")
	}
	if resp.Symbol != "XAUUSD" {
		t.Errorf("symbol = %s, want XAUUSD", resp.Symbol)
	}
}

func TestHandleGetConfigScoredWeek(t *testing.T) {
	router, repo := testRouter(t)

	ws := sampleScore("XAUUSD", 62.5, 1, true)
	ws.WeekStart = domain.WeekStart(nowForTest())
	if err := repo.Upsert(ws); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/config/XAUUSD", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp MarketConfigResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Active || resp.EntryHour != 9 || resp.SLPercent != 1.0 || resp.TPPercent != 2.0 {
		t.Errorf("unexpected config: %+v", resp)
	}
	if resp.EntryMinute != 0 {
		t.Errorf("entry minute = %d, want 0", resp.EntryMinute)
	}
}

func TestHandleOverrideSetAndClear(t *testing.T) {
	router, repo := testRouter(t)

	ws := sampleScore("XAUUSD", 62.5, 1, true)
	ws.WeekStart = domain.WeekStart(nowForTest())
	if err := repo.Upsert(ws); err != nil {
		t.Fatal(err)
	}

	// Force off
	body := bytes.NewBufferString(`{"active": false}`)
	req := httptest.NewRequest(http.MethodPost, "/api/override/XAUUSD", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp MarketConfigResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Active {
		t.Error("override response should report the forced state")
	}

	// Clear with a null active
	body = bytes.NewBufferString(`{"active": null}`)
	req = httptest.NewRequest(http.MethodPost, "/api/override/XAUUSD", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", rec.Code)
	}
	overrides, err := repo.GetOverrides(domain.WeekStart(nowForTest()))
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 0 {
		t.Errorf("expected no overrides after clear, got %v", overrides)
	}
}

func TestHandleOverrideUnknownSymbol(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/override/DOGE", bytes.NewBufferString(`{"active": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleMaxActiveGetAndSet(t *testing.T) {
	router, repo := testRouter(t)

	week := domain.WeekStart(nowForTest())
	for _, s := range []struct {
		symbol string
		score  float64
		rank   int
	}{
		{"XAUUSD", 72, 1},
		{"US500", 65, 2},
	} {
		ws := sampleScore(s.symbol, s.score, s.rank, true)
		ws.WeekStart = week
		if err := repo.Upsert(ws); err != nil {
			t.Fatal(err)
		}
	}

	// Lower the cap to 1; the week must be re-ranked
	req := httptest.NewRequest(http.MethodPut, "/api/config/max-active-markets", bytes.NewBufferString(`{"max_active": 1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp MaxActiveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.MaxActive != 1 || resp.ActiveCount != 1 {
		t.Errorf("response = %+v, want max 1 / active 1", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/config/max-active-markets", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.MaxActive != 1 {
		t.Errorf("GET after PUT reports max %d, want 1", resp.MaxActive)
	}
}

func TestHandleMaxActiveRejectsNegative(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/config/max-active-markets", bytes.NewBufferString(`{"max_active": -1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleResults(t *testing.T) {
	router, repo := testRouter(t)

	week := domain.WeekStart(nowForTest())
	ws := sampleScore("XAUUSD", 72, 1, true)
	ws.WeekStart = week
	if err := repo.Upsert(ws); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/results?week="+week.Format(dateFormat), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		WeekStart string               `json:"week_start"`
		Results   []domain.WeeklyScore `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Symbol != "XAUUSD" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestHandleResultsBadWeekParam(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/results?week=notadate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
