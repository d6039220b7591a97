package scoring

import (
	"math"

	"github.com/aristath/longentry/internal/domain"
	"github.com/aristath/longentry/pkg/formulas"
)

// Config holds every weight and cap of the score combination. All values
// come from the analysis YAML; the formula shape is the fixed contract.
type Config struct {
	// Backtest sub-score components
	ReturnWeight       float64
	ProfitFactorWeight float64
	WinRateWeight      float64
	DrawdownWeight     float64
	ProfitFactorCap    float64
	DrawdownMultiplier float64

	// Final blend
	TechnicalWeight   float64
	BacktestWeight    float64
	FundamentalWeight float64

	// Stability below this threshold scales the backtest score down
	StabilityPenaltyThreshold float64
}

// SubScore is a 0-100 score with an explicit "was actually evaluated"
// flag, so a missing peer score is never mistaken for a bearish zero.
type SubScore struct {
	Value  float64
	Scored bool
}

// Combiner normalizes backtest aggregates into a 0-100 sub-score and
// blends the technical, backtest and fundamental sub-scores.
type Combiner struct {
	cfg Config
}

// NewCombiner creates a score combiner
func NewCombiner(cfg Config) *Combiner {
	return &Combiner{cfg: cfg}
}

// BacktestScore normalizes one aggregate into [0,100] and applies the
// stability penalty.
//
// Components, each clamped to [0,100] before weighting:
//   - return:        total return capped at 100
//   - profit factor: pf / cap, at most 1, times 100
//   - win rate:      already 0-100
//   - drawdown:      100 - maxDD * multiplier, floored at 0
func (c *Combiner) BacktestScore(agg domain.BacktestAggregate, stability float64) float64 {
	normReturn := formulas.Clamp(agg.TotalReturnPct, 0, 100)
	normPF := math.Min(agg.ProfitFactor/c.cfg.ProfitFactorCap, 1.0) * 100
	normWR := formulas.Clamp(agg.WinRate, 0, 100)
	normDD := math.Max(0, 100-agg.MaxDrawdownPct*c.cfg.DrawdownMultiplier)

	raw := normReturn*c.cfg.ReturnWeight +
		normPF*c.cfg.ProfitFactorWeight +
		normWR*c.cfg.WinRateWeight +
		normDD*c.cfg.DrawdownWeight

	if stability < c.cfg.StabilityPenaltyThreshold {
		raw *= stability / 100.0
	}

	return round1(formulas.Clamp(raw, 0, 100))
}

// FinalScore blends the three sub-scores. Unscored components contribute
// zero; the flags travel with the WeeklyScore so consumers can tell
// "scored zero" from "not evaluated".
func (c *Combiner) FinalScore(technical, backtest, fundamental SubScore) float64 {
	total := 0.0
	if technical.Scored {
		total += technical.Value * c.cfg.TechnicalWeight
	}
	if backtest.Scored {
		total += backtest.Value * c.cfg.BacktestWeight
	}
	if fundamental.Scored {
		total += fundamental.Value * c.cfg.FundamentalWeight
	}
	return round1(formulas.Clamp(total, 0, 100))
}

// round1 rounds to 1 decimal place
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
