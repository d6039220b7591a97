package backtest

import (
	"sort"
	"time"

	"github.com/aristath/longentry/internal/domain"
)

// Simulator replays a single parameter combination against one symbol's
// candle history. It is a pure function of its inputs: identical bars,
// combination and spread always produce the identical trade list.
type Simulator struct {
	coarse []domain.Bar // hourly, sorted by open time
	fine   []domain.Bar // five-minute, sorted by open time, may be empty
}

// NewSimulator creates a simulator over a coarse (H1) series and an
// optional fine (M5) series covering the same span.
func NewSimulator(coarse, fine []domain.Bar) *Simulator {
	return &Simulator{coarse: coarse, fine: fine}
}

// coarseBarSpan is the window a fine series must be searched in when a
// coarse bar touches both levels.
const coarseBarSpan = time.Hour

// Run simulates fixed-SL/fixed-TP long entries for one combination.
//
// For each calendar day with a coarse bar at the entry hour: enter at that
// bar's open plus the half-spread, then walk forward until the stop or the
// target is touched. Trades still open when history ends are dropped.
func (s *Simulator) Run(combo domain.ParamCombo, halfSpread float64) []domain.SimulatedTrade {
	entries := s.entryIndices(combo.EntryHour)
	if len(entries) == 0 {
		return nil
	}

	slMult := 1.0 - combo.SLPercent/100.0
	tpMult := 1.0 + combo.TPPercent/100.0

	var trades []domain.SimulatedTrade
	for _, ei := range entries {
		entryBar := s.coarse[ei]
		entryPrice := entryBar.Open + halfSpread
		stopPrice := entryPrice * slMult
		targetPrice := entryPrice * tpMult

		// The entry bar itself counts: the position opens at the bar's
		// open, so the rest of its range can already hit a level.
		for j := ei; j < len(s.coarse); j++ {
			bar := s.coarse[j]
			stopHit := bar.Low <= stopPrice
			targetHit := bar.High >= targetPrice

			if !stopHit && !targetHit {
				continue
			}

			won := targetHit
			exitTime := bar.OpenTime
			if stopHit && targetHit {
				won, exitTime = s.resolveAmbiguous(bar, stopPrice, targetPrice)
			}

			trade := domain.SimulatedTrade{
				EntryTime:  entryBar.OpenTime,
				EntryPrice: entryPrice,
				ExitTime:   exitTime,
			}
			if won {
				trade.ExitPrice = targetPrice
				trade.Outcome = domain.OutcomeWin
				trade.ReturnPct = combo.TPPercent
			} else {
				trade.ExitPrice = stopPrice
				trade.Outcome = domain.OutcomeLoss
				trade.ReturnPct = -combo.SLPercent
			}
			trades = append(trades, trade)
			break
		}
	}

	return trades
}

// entryIndices returns the index of the first coarse bar at the entry
// hour for each calendar day, in time order.
func (s *Simulator) entryIndices(entryHour int) []int {
	var indices []int
	enteredDay := ""
	for i, bar := range s.coarse {
		if bar.OpenTime.Hour() != entryHour {
			continue
		}
		day := bar.OpenTime.Format("2006-01-02")
		if day == enteredDay {
			continue // one entry per trading day
		}
		enteredDay = day
		indices = append(indices, i)
	}
	return indices
}

// resolveAmbiguous decides which level was touched first when a single
// coarse bar's range crosses both the stop and the target, by stepping
// through the fine bars inside the coarse bar's window. Without fine data
// for the window the stop is assumed to be hit first (conservative).
func (s *Simulator) resolveAmbiguous(coarseBar domain.Bar, stopPrice, targetPrice float64) (won bool, exitTime time.Time) {
	windowStart := coarseBar.OpenTime
	windowEnd := windowStart.Add(coarseBarSpan)

	start := sort.Search(len(s.fine), func(i int) bool {
		return !s.fine[i].OpenTime.Before(windowStart)
	})

	for i := start; i < len(s.fine) && s.fine[i].OpenTime.Before(windowEnd); i++ {
		fb := s.fine[i]
		stopHit := fb.Low <= stopPrice
		targetHit := fb.High >= targetPrice

		switch {
		case stopHit:
			// A fine bar that spans both levels is itself ambiguous;
			// fall back to the same conservative default.
			return false, fb.OpenTime
		case targetHit:
			return true, fb.OpenTime
		}
	}

	// No fine data for the window, or none of it touched a level
	return false, coarseBar.OpenTime
}
