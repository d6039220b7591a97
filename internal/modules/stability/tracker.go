package stability

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// HistoryStore is the persistence the tracker needs. *Repository
// implements it; tests use an in-memory fake.
type HistoryStore interface {
	GetHistory(symbol string, before time.Time, limit int) ([]domain.ParamCombo, error)
	Append(symbol string, weekStart time.Time, combo domain.ParamCombo) error
	Prune(symbol string, keep int) error
}

// Tracker scores how persistent an instrument's best combination is
// across independent weekly runs. An exhaustive sweep always surfaces
// some "best" combination, even on noise; recurrence across weeks of
// growing history is what separates an edge from an overfit artifact.
type Tracker struct {
	store  HistoryStore
	window int
	log    zerolog.Logger
}

// NewTracker creates a stability tracker with the given window size
// (window counts the current week plus up to window-1 prior weeks).
func NewTracker(store HistoryStore, window int, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		window: window,
		log:    log.With().Str("module", "stability").Logger(),
	}
}

// Score computes the 0-100 stability of the current week's best
// combination, then appends it to the history and evicts entries beyond
// the window.
//
// stability = 100 * matching weeks / window, where the window includes
// the current week. A fresh instrument has a window of size 1 and scores
// a trivial 100: unproven, but deliberately not penalized on first sight.
func (t *Tracker) Score(symbol string, weekStart time.Time, best domain.ParamCombo) (float64, error) {
	prior, err := t.store.GetHistory(symbol, weekStart, t.window-1)
	if err != nil {
		return 0, fmt.Errorf("failed to load param history for %s: %w", symbol, err)
	}

	matching := 1 // the current week always matches itself
	for _, c := range prior {
		if c == best {
			matching++
		}
	}
	windowSize := 1 + len(prior)
	score := round1(float64(matching) / float64(windowSize) * 100)

	if err := t.store.Append(symbol, weekStart, best); err != nil {
		return 0, err
	}
	if err := t.store.Prune(symbol, t.window); err != nil {
		return 0, err
	}

	t.log.Debug().
		Str("symbol", symbol).
		Int("window", windowSize).
		Int("matching", matching).
		Float64("stability", score).
		Msg("Parameter stability computed")

	return score, nil
}

// round1 rounds to 1 decimal place
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
