package backtest

import (
	"github.com/aristath/longentry/internal/domain"
)

// Grid holds the discrete candidate sets of the parameter sweep. The full
// grid is the Cartesian product of the three sets; it is never
// materialized, combinations are generated on demand.
type Grid struct {
	EntryHours []int
	SLPercents []float64
	TPPercents []float64
}

// Size returns the number of combinations in the grid
func (g Grid) Size() int {
	return len(g.EntryHours) * len(g.SLPercents) * len(g.TPPercents)
}

// WithEntryHours returns a copy of the grid restricted to the given
// entry-hour candidates, preserving order.
func (g Grid) WithEntryHours(hours []int) Grid {
	return Grid{
		EntryHours: hours,
		SLPercents: g.SLPercents,
		TPPercents: g.TPPercents,
	}
}

// Iterator walks the grid lazily in a fixed order: entry hour varies
// slowest, take-profit fastest. Restartable via Reset.
type Iterator struct {
	grid    Grid
	h, s, t int
}

// Iter returns a fresh iterator over the grid
func (g Grid) Iter() *Iterator {
	return &Iterator{grid: g}
}

// Next returns the next combination, or false when the grid is exhausted
func (it *Iterator) Next() (domain.ParamCombo, bool) {
	g := it.grid
	if it.h >= len(g.EntryHours) || len(g.SLPercents) == 0 || len(g.TPPercents) == 0 {
		return domain.ParamCombo{}, false
	}

	combo := domain.ParamCombo{
		EntryHour: g.EntryHours[it.h],
		SLPercent: g.SLPercents[it.s],
		TPPercent: g.TPPercents[it.t],
	}

	it.t++
	if it.t >= len(g.TPPercents) {
		it.t = 0
		it.s++
	}
	if it.s >= len(g.SLPercents) {
		it.s = 0
		it.h++
	}

	return combo, true
}

// Reset rewinds the iterator to the first combination
func (it *Iterator) Reset() {
	it.h, it.s, it.t = 0, 0, 0
}
