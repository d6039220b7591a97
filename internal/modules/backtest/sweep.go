package backtest

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// ErrNoResult signals that the sweep could not produce a single resolved
// trade for any combination. The instrument must stay unscored for the
// week; downstream stages never see a fabricated zero-return result.
var ErrNoResult = errors.New("backtest: no eligible trades for any combination")

// Sweeper runs the full-factorial parameter sweep for one instrument on a
// fixed-size worker pool. The simulator is pure, so workers share the bar
// series read-only and need no synchronization beyond result collection.
type Sweeper struct {
	workers int
	log     zerolog.Logger
}

// NewSweeper creates a sweeper. workers <= 0 means one per CPU core.
func NewSweeper(workers int, log zerolog.Logger) *Sweeper {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Sweeper{
		workers: workers,
		log:     log.With().Str("component", "sweeper").Logger(),
	}
}

// Result is the outcome of one instrument's sweep
type Result struct {
	Best         domain.BacktestAggregate
	CombosTested int
}

// Sweep simulates every grid combination against the instrument's history
// and reduces to the single best combination.
//
// Entry-hour candidates are first restricted to the instrument's liquid
// session window and to hours that actually trade on at least half of the
// days in the history, so the grid never wastes work on dead hours.
func (s *Sweeper) Sweep(ctx context.Context, coarse, fine []domain.Bar, grid Grid, market domain.Market) (*Result, error) {
	hours := ValidEntryHours(coarse, grid.EntryHours, market)
	if len(hours) == 0 {
		s.log.Warn().Str("symbol", market.Symbol).Msg("No valid entry hours")
		return nil, ErrNoResult
	}
	grid = grid.WithEntryHours(hours)

	sim := NewSimulator(coarse, fine)
	halfSpread := market.Spread / 2.0

	jobs := make(chan domain.ParamCombo)
	results := make(chan domain.BacktestAggregate, s.workers)

	// Producer: lazily enumerate the grid, stop on cancellation
	go func() {
		defer close(jobs)
		it := grid.Iter()
		for combo, ok := it.Next(); ok; combo, ok = it.Next() {
			select {
			case jobs <- combo:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for combo := range jobs {
				trades := sim.Run(combo, halfSpread)
				results <- Aggregate(combo, trades)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var best *domain.BacktestAggregate
	tested := 0
	for agg := range results {
		tested++
		if agg.TradeCount == 0 {
			continue // never let an empty combination win
		}
		if best == nil || Better(agg, *best) {
			copied := agg
			best = &copied
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, ErrNoResult
	}

	return &Result{Best: *best, CombosTested: tested}, nil
}

// ValidEntryHours filters the configured entry-hour candidates for one
// instrument: an hour must fall inside the liquid session window and
// appear on at least 50% of the trading days in the history.
func ValidEntryHours(coarse []domain.Bar, candidates []int, market domain.Market) []int {
	days := map[string]struct{}{}
	daysPerHour := map[int]map[string]struct{}{}

	for _, bar := range coarse {
		day := bar.OpenTime.Format("2006-01-02")
		days[day] = struct{}{}

		hour := bar.OpenTime.Hour()
		if daysPerHour[hour] == nil {
			daysPerHour[hour] = map[string]struct{}{}
		}
		daysPerHour[hour][day] = struct{}{}
	}

	if len(days) == 0 {
		return nil
	}
	threshold := float64(len(days)) * 0.5

	var valid []int
	for _, h := range candidates {
		if h < market.SessionStart || h > market.SessionEnd {
			continue
		}
		if float64(len(daysPerHour[h])) < threshold {
			continue
		}
		valid = append(valid, h)
	}
	return valid
}
