package scoring

import (
	"testing"

	"github.com/aristath/longentry/internal/domain"
)

func testConfig() Config {
	return Config{
		ReturnWeight:              0.35,
		ProfitFactorWeight:        0.30,
		WinRateWeight:             0.15,
		DrawdownWeight:            0.20,
		ProfitFactorCap:           3.0,
		DrawdownMultiplier:        5.0,
		TechnicalWeight:           0.50,
		BacktestWeight:            0.35,
		FundamentalWeight:         0.15,
		StabilityPenaltyThreshold: 50,
	}
}

func TestBacktestScoreComponents(t *testing.T) {
	c := NewCombiner(testConfig())

	agg := domain.BacktestAggregate{
		TotalReturnPct: 20,  // -> 20
		ProfitFactor:   1.5, // 1.5/3.0 -> 50
		WinRate:        60,  // -> 60
		MaxDrawdownPct: 4,   // 100 - 4*5 -> 80
	}

	// 20*0.35 + 50*0.30 + 60*0.15 + 80*0.20 = 7 + 15 + 9 + 16 = 47
	got := c.BacktestScore(agg, 100)
	if got != 47 {
		t.Errorf("BacktestScore = %v, want 47", got)
	}
}

func TestBacktestScoreClampsComponents(t *testing.T) {
	c := NewCombiner(testConfig())

	agg := domain.BacktestAggregate{
		TotalReturnPct: 500, // capped at 100
		ProfitFactor:   99,  // capped at the PF cap -> 100
		WinRate:        100,
		MaxDrawdownPct: 50, // 100 - 250 floored at 0
	}

	// 100*0.35 + 100*0.30 + 100*0.15 + 0*0.20 = 80
	got := c.BacktestScore(agg, 100)
	if got != 80 {
		t.Errorf("BacktestScore = %v, want 80", got)
	}
}

func TestBacktestScoreStabilityPenalty(t *testing.T) {
	c := NewCombiner(testConfig())

	agg := domain.BacktestAggregate{
		TotalReturnPct: 20,
		ProfitFactor:   1.5,
		WinRate:        60,
		MaxDrawdownPct: 4,
	}

	tests := []struct {
		name      string
		stability float64
		want      float64
	}{
		{"above threshold untouched", 80, 47},
		{"at threshold untouched", 50, 47},
		{"below threshold scaled", 25, 11.8}, // 47 * 0.25
		{"zero stability zeroes the score", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.BacktestScore(agg, tt.stability); got != tt.want {
				t.Errorf("BacktestScore(stability=%v) = %v, want %v", tt.stability, got, tt.want)
			}
		})
	}
}

func TestBacktestScoreNegativeReturnFloorsAtZero(t *testing.T) {
	c := NewCombiner(testConfig())

	agg := domain.BacktestAggregate{
		TotalReturnPct: -10,
		ProfitFactor:   0,
		WinRate:        0,
		MaxDrawdownPct: 30,
	}

	if got := c.BacktestScore(agg, 100); got != 0 {
		t.Errorf("BacktestScore = %v, want 0", got)
	}
}

func TestFinalScoreBlend(t *testing.T) {
	c := NewCombiner(testConfig())

	tests := []struct {
		name                             string
		technical, backtest, fundamental SubScore
		want                             float64
	}{
		{
			name:        "all scored",
			technical:   SubScore{Value: 80, Scored: true},
			backtest:    SubScore{Value: 60, Scored: true},
			fundamental: SubScore{Value: 40, Scored: true},
			// 80*0.50 + 60*0.35 + 40*0.15 = 40 + 21 + 6 = 67
			want: 67,
		},
		{
			name:      "unscored components contribute zero",
			technical: SubScore{Value: 80, Scored: true},
			backtest:  SubScore{Value: 60, Scored: false},
			want:      40,
		},
		{
			name: "nothing scored",
			want: 0,
		},
		{
			name:        "scored zero is a real zero",
			technical:   SubScore{Value: 0, Scored: true},
			backtest:    SubScore{Value: 60, Scored: true},
			fundamental: SubScore{Value: 0, Scored: true},
			want:        21,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.FinalScore(tt.technical, tt.backtest, tt.fundamental)
			if got != tt.want {
				t.Errorf("FinalScore = %v, want %v", got, tt.want)
			}
		})
	}
}
