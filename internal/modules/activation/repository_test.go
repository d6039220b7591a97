package activation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/database"
	"github.com/aristath/longentry/internal/domain"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepository(db.Conn(), zerolog.Nop())
}

func testWeek() time.Time {
	return time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
}

func sampleScore(symbol string, final float64, rank int, active bool) *domain.WeeklyScore {
	return &domain.WeeklyScore{
		Symbol:         symbol,
		WeekStart:      testWeek(),
		TechnicalScore: 70, TechnicalScored: true,
		BacktestScore: 55, BacktestScored: true,
		FinalScore:   final,
		Rank:         rank,
		IsActive:     active,
		OptEntryHour: 9, OptSLPercent: 1.0, OptTPPercent: 2.0,
		BTTotalReturn: 12.5, BTWinRate: 58, BTProfitFactor: 1.8,
		BTTotalTrades: 40, BTMaxDrawdown: 3.2, BTStability: 75,
	}
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	repo := testRepo(t)
	want := sampleScore("XAUUSD", 62.5, 1, true)

	if err := repo.Upsert(want); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.Get("XAUUSD", testWeek())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for an existing row")
	}
	if got.FinalScore != want.FinalScore || got.Rank != want.Rank || !got.IsActive {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.OptEntryHour != 9 || got.OptSLPercent != 1.0 || got.OptTPPercent != 2.0 {
		t.Errorf("combo fields lost: %+v", got)
	}
	if !got.WeekStart.Equal(testWeek()) {
		t.Errorf("week start = %v, want %v", got.WeekStart, testWeek())
	}
}

func TestRepositoryGetMissingReturnsNil(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.Get("US500", testWeek())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing row, got %+v", got)
	}
}

func TestRepositoryUpsertPreservesOverride(t *testing.T) {
	repo := testRepo(t)

	if err := repo.Upsert(sampleScore("XAUUSD", 62.5, 1, true)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetOverride("XAUUSD", testWeek(), false); err != nil {
		t.Fatal(err)
	}

	// A weekly re-run must not undo the manual override
	rerun := sampleScore("XAUUSD", 70.0, 1, true)
	if err := repo.Upsert(rerun); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get("XAUUSD", testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Error("override should keep the symbol inactive across re-runs")
	}
	if !got.IsManuallyOverridden {
		t.Error("override flag lost on re-run")
	}
	if got.FinalScore != 70.0 {
		t.Errorf("scores should still update, final = %v, want 70", got.FinalScore)
	}
}

func TestRepositorySetOverrideCreatesRow(t *testing.T) {
	repo := testRepo(t)

	if err := repo.SetOverride("GER40", testWeek(), true); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get("GER40", testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.IsActive || !got.IsManuallyOverridden {
		t.Errorf("override on an unscored symbol should create an active overridden row, got %+v", got)
	}
}

func TestRepositoryClearOverride(t *testing.T) {
	repo := testRepo(t)

	if err := repo.Upsert(sampleScore("XAUUSD", 62.5, 1, true)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetOverride("XAUUSD", testWeek(), false); err != nil {
		t.Fatal(err)
	}
	if err := repo.ClearOverride("XAUUSD", testWeek()); err != nil {
		t.Fatal(err)
	}

	overrides, err := repo.GetOverrides(testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 0 {
		t.Errorf("expected no overrides after clear, got %v", overrides)
	}
}

func TestRepositoryGetOverrides(t *testing.T) {
	repo := testRepo(t)

	if err := repo.SetOverride("XAUUSD", testWeek(), true); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetOverride("US500", testWeek(), false); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(sampleScore("GER40", 50, 1, true)); err != nil {
		t.Fatal(err)
	}

	overrides, err := repo.GetOverrides(testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(overrides))
	}
	if !overrides["XAUUSD"] || overrides["US500"] {
		t.Errorf("override states wrong: %v", overrides)
	}
}

func TestRepositoryGetWeekOrderedByRank(t *testing.T) {
	repo := testRepo(t)

	for _, ws := range []*domain.WeeklyScore{
		sampleScore("GER40", 48, 3, false),
		sampleScore("XAUUSD", 72, 1, true),
		sampleScore("US500", 65, 2, true),
	} {
		if err := repo.Upsert(ws); err != nil {
			t.Fatal(err)
		}
	}

	scores, err := repo.GetWeek(testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(scores))
	}
	want := []string{"XAUUSD", "US500", "GER40"}
	for i, ws := range scores {
		if ws.Symbol != want[i] {
			t.Errorf("position %d = %s, want %s", i, ws.Symbol, want[i])
		}
	}
}

func TestRepositoryReactivate(t *testing.T) {
	repo := testRepo(t)

	for _, ws := range []*domain.WeeklyScore{
		sampleScore("XAUUSD", 72, 1, true),
		sampleScore("US500", 65, 2, true),
		sampleScore("GER40", 48, 3, true),
	} {
		if err := repo.Upsert(ws); err != nil {
			t.Fatal(err)
		}
	}
	// Forced off; reactivation must not touch it
	if err := repo.SetOverride("US500", testWeek(), false); err != nil {
		t.Fatal(err)
	}

	if err := repo.Reactivate(testWeek(), 1, 40); err != nil {
		t.Fatal(err)
	}

	count, err := repo.CountActive(testWeek())
	if err != nil {
		t.Fatal(err)
	}
	// Only XAUUSD: the cap is 1, US500 is overridden off, GER40 re-ranked out
	if count != 1 {
		t.Errorf("active count = %d, want 1", count)
	}

	got, err := repo.Get("US500", testWeek())
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Error("overridden symbol must stay inactive through reactivation")
	}
}
