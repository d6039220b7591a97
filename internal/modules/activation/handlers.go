package activation

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// Handlers provides the HTTP surface the trading terminal and the
// dashboard consume: per-symbol config lookup, manual overrides, the
// max-active setting and the weekly results listing.
type Handlers struct {
	repo    *Repository
	markets map[string]domain.Market

	mu        sync.Mutex
	maxActive int
	minScore  float64

	log zerolog.Logger
}

// NewHandlers creates activation handlers for the given universe
func NewHandlers(repo *Repository, markets []domain.Market, maxActive int, minScore float64, log zerolog.Logger) *Handlers {
	bySymbol := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
	}
	return &Handlers{
		repo:      repo,
		markets:   bySymbol,
		maxActive: maxActive,
		minScore:  minScore,
		log:       log.With().Str("module", "activation_handlers").Logger(),
	}
}

// Routes mounts the activation endpoints on a chi router
func (h *Handlers) Routes(r chi.Router) {
	// The fixed path must be registered before the wildcard
	r.Get("/config/max-active-markets", h.handleGetMaxActive)
	r.Put("/config/max-active-markets", h.handleSetMaxActive)
	r.Get("/config/{symbol}", h.handleGetConfig)
	r.Post("/override/{symbol}", h.handleOverride)
	r.Get("/results", h.handleResults)
}

// MarketConfigResponse is what the trading terminal polls daily
type MarketConfigResponse struct {
	Symbol      string  `json:"symbol"`
	Active      bool    `json:"active"`
	EntryHour   int     `json:"entry_hour"`
	EntryMinute int     `json:"entry_minute"`
	SLPercent   float64 `json:"sl_percent"`
	TPPercent   float64 `json:"tp_percent"`
	WeekStart   string  `json:"week_start"`
}

// handleGetConfig returns the trading configuration for one symbol.
// A missing weekly record means "inactive", never an error.
func (h *Handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if _, ok := h.markets[symbol]; !ok {
		h.writeError(w, "Unknown symbol: "+symbol, http.StatusNotFound)
		return
	}

	weekStart := domain.WeekStart(time.Now())
	ws, err := h.repo.Get(symbol, weekStart)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load weekly config")
		h.writeError(w, "Failed to load config", http.StatusInternalServerError)
		return
	}

	resp := MarketConfigResponse{
		Symbol:    symbol,
		WeekStart: weekStart.Format(dateFormat),
	}
	if ws != nil {
		resp.Active = ws.IsActive
		resp.EntryHour = ws.OptEntryHour
		resp.EntryMinute = ws.OptEntryMinute
		resp.SLPercent = ws.OptSLPercent
		resp.TPPercent = ws.OptTPPercent
	}

	h.writeJSON(w, resp)
}

// OverrideRequest sets or clears a manual override. A null active field
// clears the override.
type OverrideRequest struct {
	Active *bool `json:"active"`
}

func (h *Handlers) handleOverride(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if _, ok := h.markets[symbol]; !ok {
		h.writeError(w, "Unknown symbol: "+symbol, http.StatusNotFound)
		return
	}

	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	weekStart := domain.WeekStart(time.Now())

	var err error
	if req.Active == nil {
		err = h.repo.ClearOverride(symbol, weekStart)
	} else {
		err = h.repo.SetOverride(symbol, weekStart, *req.Active)
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to apply override")
		h.writeError(w, "Failed to apply override", http.StatusInternalServerError)
		return
	}

	h.log.Info().
		Str("symbol", symbol).
		Interface("active", req.Active).
		Msg("Manual override applied")

	// Return the resulting config
	h.handleGetConfig(w, r)
}

// MaxActiveResponse reports the max-active setting and the current count
type MaxActiveResponse struct {
	MaxActive   int `json:"max_active"`
	ActiveCount int `json:"active_count"`
}

// MaxActiveRequest updates the max-active setting
type MaxActiveRequest struct {
	MaxActive int `json:"max_active"`
}

func (h *Handlers) handleGetMaxActive(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.CountActive(domain.WeekStart(time.Now()))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count active markets")
		h.writeError(w, "Failed to count active markets", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	maxActive := h.maxActive
	h.mu.Unlock()

	h.writeJSON(w, MaxActiveResponse{MaxActive: maxActive, ActiveCount: count})
}

// handleSetMaxActive updates the setting and re-ranks the current week,
// respecting manual overrides.
func (h *Handlers) handleSetMaxActive(w http.ResponseWriter, r *http.Request) {
	var req MaxActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxActive < 0 {
		h.writeError(w, "max_active must be >= 0", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.maxActive = req.MaxActive
	minScore := h.minScore
	h.mu.Unlock()

	weekStart := domain.WeekStart(time.Now())
	if err := h.repo.Reactivate(weekStart, req.MaxActive, minScore); err != nil {
		h.log.Error().Err(err).Msg("Failed to reactivate week")
		h.writeError(w, "Failed to reactivate week", http.StatusInternalServerError)
		return
	}

	count, err := h.repo.CountActive(weekStart)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count active markets")
		h.writeError(w, "Failed to count active markets", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, MaxActiveResponse{MaxActive: req.MaxActive, ActiveCount: count})
}

// MaxActive returns the current max-active setting (used by the weekly job)
func (h *Handlers) MaxActive() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxActive
}

// handleResults lists the weekly records ordered by rank.
// Week defaults to the current trading week.
func (h *Handlers) handleResults(w http.ResponseWriter, r *http.Request) {
	weekStart := domain.WeekStart(time.Now())
	if param := r.URL.Query().Get("week"); param != "" {
		parsed, err := time.Parse(dateFormat, param)
		if err != nil {
			h.writeError(w, "Invalid week format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		weekStart = domain.WeekStart(parsed)
	}

	scores, err := h.repo.GetWeek(weekStart)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load weekly results")
		h.writeError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}
	if scores == nil {
		scores = []domain.WeeklyScore{}
	}

	h.writeJSON(w, map[string]interface{}{
		"week_start": weekStart.Format(dateFormat),
		"results":    scores,
	})
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
