package backtest

import (
	"github.com/aristath/longentry/internal/domain"
	"github.com/aristath/longentry/pkg/formulas"
)

// SentinelProfitFactor stands in for an undefined profit factor when a
// combination produced wins but no losses. It normalizes to the cap in
// the score combiner and sorts above any real profit factor.
const SentinelProfitFactor = 99.0

// Aggregate reduces one combination's trade list to its statistics.
// total_return is the plain sum of per-trade returns and the drawdown is
// taken over the running cumulative sum of those returns.
func Aggregate(combo domain.ParamCombo, trades []domain.SimulatedTrade) domain.BacktestAggregate {
	agg := domain.BacktestAggregate{Combo: combo}

	grossProfit := 0.0
	grossLoss := 0.0
	returns := make([]float64, 0, len(trades))

	for _, t := range trades {
		returns = append(returns, t.ReturnPct)
		agg.TotalReturnPct += t.ReturnPct
		if t.Outcome == domain.OutcomeWin {
			agg.Wins++
			grossProfit += t.ReturnPct
		} else {
			agg.Losses++
			grossLoss += -t.ReturnPct
		}
	}

	agg.TradeCount = len(trades)
	if agg.TradeCount > 0 {
		agg.WinRate = float64(agg.Wins) / float64(agg.TradeCount) * 100
	}

	switch {
	case agg.Wins == 0:
		agg.ProfitFactor = 0
	case grossLoss == 0:
		agg.ProfitFactor = SentinelProfitFactor
	default:
		agg.ProfitFactor = grossProfit / grossLoss
	}

	agg.MaxDrawdownPct = formulas.MaxDrawdownFromReturns(returns)

	return agg
}

// Better reports whether a should be preferred over b as the week's best
// combination. Ordering is total return, then profit factor, then lower
// drawdown, then lower entry hour. Remaining ties fall back to the grid
// order (lower stop, then lower target), so selection is fully
// deterministic regardless of worker scheduling.
func Better(a, b domain.BacktestAggregate) bool {
	if a.TotalReturnPct != b.TotalReturnPct {
		return a.TotalReturnPct > b.TotalReturnPct
	}
	if a.ProfitFactor != b.ProfitFactor {
		return a.ProfitFactor > b.ProfitFactor
	}
	if a.MaxDrawdownPct != b.MaxDrawdownPct {
		return a.MaxDrawdownPct < b.MaxDrawdownPct
	}
	if a.Combo.EntryHour != b.Combo.EntryHour {
		return a.Combo.EntryHour < b.Combo.EntryHour
	}
	if a.Combo.SLPercent != b.Combo.SLPercent {
		return a.Combo.SLPercent < b.Combo.SLPercent
	}
	return a.Combo.TPPercent < b.Combo.TPPercent
}
