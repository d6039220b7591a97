package scoring

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
	"github.com/aristath/longentry/pkg/formulas"
)

// ErrInsufficientData signals that a symbol has too little history to be
// scored this week.
var ErrInsufficientData = errors.New("scoring: insufficient history")

// minDailyBars is the minimum number of daily bars required to compute
// technical metrics at all.
const minDailyBars = 20

// TechnicalMetrics are the weekly technical readings for one symbol
type TechnicalMetrics struct {
	Score          float64 `json:"score"`
	CurrentPrice   float64 `json:"current_price"`
	UpDayWinRate   float64 `json:"up_day_win_rate"`
	AvgDailyGrowth float64 `json:"avg_daily_growth"`
	AvgDailyLoss   float64 `json:"avg_daily_loss"`
	DailyBarCount  int     `json:"daily_bar_count"`
}

// TechnicalScorer computes a composite 0-100 technical score from hourly
// candles aggregated into daily bars.
//
// Components and weights:
//   - up-day win rate      20%
//   - growth/loss ratio    15%
//   - trend (price vs SMA) 25%
//   - RSI(14)              15%
//   - momentum (1w, 1m)    15%
//   - volatility (ATR)     10%
type TechnicalScorer struct {
	log zerolog.Logger
}

// NewTechnicalScorer creates a technical scorer
func NewTechnicalScorer(log zerolog.Logger) *TechnicalScorer {
	return &TechnicalScorer{
		log: log.With().Str("module", "technical").Logger(),
	}
}

// Score computes the technical metrics for one symbol's hourly history
func (s *TechnicalScorer) Score(h1 []domain.Bar) (*TechnicalMetrics, error) {
	daily := buildDailyBars(h1)
	if len(daily) < minDailyBars {
		return nil, ErrInsufficientData
	}

	closes := make([]float64, len(daily))
	highs := make([]float64, len(daily))
	lows := make([]float64, len(daily))
	var upChanges, downChanges []float64
	upDays := 0

	for i, d := range daily {
		closes[i] = d.Close
		highs[i] = d.High
		lows[i] = d.Low

		change := formulas.PctChange(d.Open, d.Close)
		if change > 0 {
			upDays++
			upChanges = append(upChanges, change)
		} else if change < 0 {
			downChanges = append(downChanges, change)
		}
	}

	m := &TechnicalMetrics{
		CurrentPrice:   h1[len(h1)-1].Close,
		UpDayWinRate:   float64(upDays) / float64(len(daily)) * 100,
		AvgDailyGrowth: formulas.Mean(upChanges),
		AvgDailyLoss:   formulas.Mean(downChanges),
		DailyBarCount:  len(daily),
	}

	components := map[string]float64{
		"win_rate":    s.winRateScore(m.UpDayWinRate),
		"growth_loss": s.growthLossScore(m.AvgDailyGrowth, m.AvgDailyLoss),
		"trend":       s.trendScore(m.CurrentPrice, closes),
		"rsi":         s.rsiScore(formulas.CalculateRSI(closes, 14)),
		"momentum":    s.momentumScore(closes),
		"volatility":  s.volatilityScore(formulas.CalculateATR(highs, lows, closes, 14), m.CurrentPrice),
	}

	weights := map[string]float64{
		"win_rate":    0.20,
		"growth_loss": 0.15,
		"trend":       0.25,
		"rsi":         0.15,
		"momentum":    0.15,
		"volatility":  0.10,
	}

	total := 0.0
	for k, w := range weights {
		total += components[k] * w
	}
	m.Score = round1(formulas.Clamp(total, 0, 100))

	return m, nil
}

// winRateScore maps the 45%-65% up-day range onto 0-100
func (s *TechnicalScorer) winRateScore(winRate float64) float64 {
	return formulas.Clamp((winRate-45)/20*100, 0, 100)
}

// growthLossScore scores the ratio of average up-day gain to average
// down-day loss; a ratio of 0.5-2.0 maps onto 0-100.
func (s *TechnicalScorer) growthLossScore(growth, loss float64) float64 {
	if loss == 0 {
		return 50
	}
	ratio := growth / -loss
	if ratio < 0 {
		ratio = -ratio
	}
	return formulas.Clamp((ratio-0.5)/1.5*100, 0, 100)
}

// trendScore awards points for the price sitting above each SMA
func (s *TechnicalScorer) trendScore(price float64, closes []float64) float64 {
	trend := 0.0
	if sma := formulas.CalculateSMA(closes, 20); sma != nil && price > *sma {
		trend += 33
	}
	if sma := formulas.CalculateSMA(closes, 50); sma != nil && price > *sma {
		trend += 33
	}
	if sma := formulas.CalculateSMA(closes, 200); sma != nil && price > *sma {
		trend += 34
	}
	return trend
}

// rsiScore prefers the 40-65 band ideal for a long entry, peaking at 52.5
func (s *TechnicalScorer) rsiScore(rsi *float64) float64 {
	if rsi == nil {
		return 50
	}
	v := *rsi
	switch {
	case v >= 40 && v <= 65:
		return 100 - abs(v-52.5)/12.5*30
	case v < 40:
		// Oversold: opportunity but risky
		return formulas.Clamp(v/40*70, 0, 100)
	default:
		// Overbought penalty
		return formulas.Clamp(100-(v-65)*3, 0, 100)
	}
}

// momentumScore blends 1-week and 1-month price changes, roughly mapping
// -5%..+5% onto 0-100.
func (s *TechnicalScorer) momentumScore(closes []float64) float64 {
	m1w := priceChange(closes, 5)
	m1m := priceChange(closes, 22)
	momentum := m1w*0.4 + m1m*0.6
	return formulas.Clamp(50+momentum*10, 0, 100)
}

// volatilityScore prefers a moderate daily ATR of 0.5%-2.0% of price
func (s *TechnicalScorer) volatilityScore(atr *float64, price float64) float64 {
	if atr == nil || price <= 0 {
		return 50
	}
	atrPct := *atr / price * 100
	switch {
	case atrPct >= 0.5 && atrPct <= 2.0:
		return 100 - abs(atrPct-1.25)/0.75*30
	case atrPct < 0.5:
		return formulas.Clamp(atrPct/0.5*70, 0, 100)
	default:
		return formulas.Clamp(100-(atrPct-2.0)*25, 0, 100)
	}
}

// priceChange returns the percentage change over the last n trading days,
// or 0 when the history is too short.
func priceChange(closes []float64, n int) float64 {
	if len(closes) < n+1 {
		return 0
	}
	return formulas.PctChange(closes[len(closes)-1-n], closes[len(closes)-1])
}

// buildDailyBars aggregates hourly candles into daily OHLCV bars,
// preserving chronological order.
func buildDailyBars(h1 []domain.Bar) []domain.Bar {
	byDay := map[string]*domain.Bar{}
	var keys []string

	for _, bar := range h1 {
		day := bar.OpenTime.Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			copied := bar
			byDay[day] = &copied
			keys = append(keys, day)
			continue
		}
		if bar.High > d.High {
			d.High = bar.High
		}
		if bar.Low < d.Low {
			d.Low = bar.Low
		}
		d.Close = bar.Close
		d.Volume += bar.Volume
	}

	sort.Strings(keys)
	daily := make([]domain.Bar, 0, len(keys))
	for _, k := range keys {
		daily = append(daily, *byDay[k])
	}
	return daily
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
