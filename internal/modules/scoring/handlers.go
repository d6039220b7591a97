package scoring

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// Handlers exposes the fundamental score intake. Scores arrive from an
// external macro/fundamental evaluation (manual for now) and feed the
// next weekly combination.
type Handlers struct {
	fundamentals *FundamentalRepository
	log          zerolog.Logger
}

// NewHandlers creates scoring handlers
func NewHandlers(fundamentals *FundamentalRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		fundamentals: fundamentals,
		log:          log.With().Str("module", "scoring_handlers").Logger(),
	}
}

// Routes mounts the scoring endpoints on a chi router
func (h *Handlers) Routes(r chi.Router) {
	r.Put("/fundamental/{symbol}", h.handleSetFundamental)
}

// FundamentalRequest sets a symbol's fundamental score for a week.
// week_start defaults to the current trading week.
type FundamentalRequest struct {
	Score     float64 `json:"score"`
	WeekStart string  `json:"week_start,omitempty"`
}

func (h *Handlers) handleSetFundamental(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req FundamentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Score < 0 || req.Score > 100 {
		h.writeError(w, "score must be within [0,100]", http.StatusBadRequest)
		return
	}

	weekStart := domain.WeekStart(time.Now())
	if req.WeekStart != "" {
		parsed, err := time.Parse("2006-01-02", req.WeekStart)
		if err != nil {
			h.writeError(w, "Invalid week_start format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		weekStart = domain.WeekStart(parsed)
	}

	if err := h.fundamentals.Set(symbol, weekStart, req.Score); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to store fundamental score")
		h.writeError(w, "Failed to store fundamental score", http.StatusInternalServerError)
		return
	}

	h.log.Info().
		Str("symbol", symbol).
		Float64("score", req.Score).
		Str("week_start", weekStart.Format("2006-01-02")).
		Msg("Fundamental score updated")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol":     symbol,
		"week_start": weekStart.Format("2006-01-02"),
		"score":      req.Score,
	})
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
