package activation

import (
	"sort"

	"github.com/aristath/longentry/internal/domain"
)

// Selector ranks the week's scored instruments and decides the activation
// set: the top N at or above the minimum-score floor. Manual overrides are
// applied last and win over both rank and floor.
type Selector struct {
	maxActive     int
	minFinalScore float64
}

// NewSelector creates an activation selector
func NewSelector(maxActive int, minFinalScore float64) *Selector {
	return &Selector{
		maxActive:     maxActive,
		minFinalScore: minFinalScore,
	}
}

// Select assigns ranks and active flags in place. Instruments are sorted
// by final score descending with symbol as the deterministic tie-break.
// overrides maps symbol to the forced active state for the week.
//
// The set is never padded: if fewer than N instruments clear the floor,
// only those are activated, and zero is a valid outcome.
func (s *Selector) Select(scores []*domain.WeeklyScore, overrides map[string]bool) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].FinalScore != scores[j].FinalScore {
			return scores[i].FinalScore > scores[j].FinalScore
		}
		return scores[i].Symbol < scores[j].Symbol
	})

	for i, ws := range scores {
		ws.Rank = i + 1
		ws.IsActive = i < s.maxActive && ws.FinalScore >= s.minFinalScore
		ws.IsManuallyOverridden = false

		if forced, ok := overrides[ws.Symbol]; ok {
			ws.IsActive = forced
			ws.IsManuallyOverridden = true
		}
	}
}
