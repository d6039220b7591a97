package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/longentry/internal/domain"
)

// AnalysisConfig is the weekly analysis surface: the instrument universe,
// the parameter grid, score weights and activation rules. Everything the
// core consumes lives here rather than in compiled-in constants.
type AnalysisConfig struct {
	Markets []domain.Market `yaml:"markets"`

	Grid struct {
		EntryHours []int     `yaml:"entry_hours"`
		SLPercents []float64 `yaml:"sl_percents"`
		TPPercents []float64 `yaml:"tp_percents"`
	} `yaml:"grid"`

	Scoring struct {
		// Backtest sub-score component weights
		ReturnWeight       float64 `yaml:"return_weight"`
		ProfitFactorWeight float64 `yaml:"profit_factor_weight"`
		WinRateWeight      float64 `yaml:"win_rate_weight"`
		DrawdownWeight     float64 `yaml:"drawdown_weight"`
		ProfitFactorCap    float64 `yaml:"profit_factor_cap"`
		DrawdownMultiplier float64 `yaml:"drawdown_multiplier"`

		// Final score blend
		TechnicalWeight   float64 `yaml:"technical_weight"`
		BacktestWeight    float64 `yaml:"backtest_weight"`
		FundamentalWeight float64 `yaml:"fundamental_weight"`
	} `yaml:"scoring"`

	Stability struct {
		Window           int     `yaml:"window"`
		PenaltyThreshold float64 `yaml:"penalty_threshold"`
	} `yaml:"stability"`

	Activation struct {
		MaxActive     int     `yaml:"max_active"`
		MinFinalScore float64 `yaml:"min_final_score"`
	} `yaml:"activation"`
}

// LoadAnalysis reads and validates the analysis YAML file
func LoadAnalysis(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis config: %w", err)
	}

	cfg := &AnalysisConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse analysis config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *AnalysisConfig) applyDefaults() {
	s := &c.Scoring
	if s.ReturnWeight == 0 && s.ProfitFactorWeight == 0 && s.WinRateWeight == 0 && s.DrawdownWeight == 0 {
		s.ReturnWeight = 0.35
		s.ProfitFactorWeight = 0.30
		s.WinRateWeight = 0.15
		s.DrawdownWeight = 0.20
	}
	if s.ProfitFactorCap == 0 {
		s.ProfitFactorCap = 3.0
	}
	if s.DrawdownMultiplier == 0 {
		s.DrawdownMultiplier = 5.0
	}
	if s.TechnicalWeight == 0 && s.BacktestWeight == 0 && s.FundamentalWeight == 0 {
		s.TechnicalWeight = 0.50
		s.BacktestWeight = 0.35
		s.FundamentalWeight = 0.15
	}
	if c.Stability.Window == 0 {
		c.Stability.Window = 8
	}
	if c.Stability.PenaltyThreshold == 0 {
		c.Stability.PenaltyThreshold = 50
	}
	if c.Activation.MaxActive == 0 {
		c.Activation.MaxActive = 6
	}
	if c.Activation.MinFinalScore == 0 {
		c.Activation.MinFinalScore = 40
	}
}

// Validate rejects structurally broken configurations. An empty universe
// or an empty grid dimension would silently produce an empty weekly run,
// so both are fatal.
func (c *AnalysisConfig) Validate() error {
	if len(c.Markets) == 0 {
		return fmt.Errorf("analysis config: markets list is empty")
	}
	for _, m := range c.Markets {
		if m.Symbol == "" {
			return fmt.Errorf("analysis config: market with empty symbol")
		}
		if m.SessionStart < 0 || m.SessionStart > 23 || m.SessionEnd < 0 || m.SessionEnd > 23 {
			return fmt.Errorf("analysis config: %s session hours out of range", m.Symbol)
		}
		if m.SessionStart > m.SessionEnd {
			return fmt.Errorf("analysis config: %s session start after end", m.Symbol)
		}
		if m.Spread < 0 {
			return fmt.Errorf("analysis config: %s negative spread", m.Symbol)
		}
	}

	if len(c.Grid.EntryHours) == 0 {
		return fmt.Errorf("analysis config: grid entry_hours is empty")
	}
	for _, h := range c.Grid.EntryHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("analysis config: grid entry hour %d out of range", h)
		}
	}
	if len(c.Grid.SLPercents) == 0 {
		return fmt.Errorf("analysis config: grid sl_percents is empty")
	}
	for _, sl := range c.Grid.SLPercents {
		if sl <= 0 {
			return fmt.Errorf("analysis config: grid stop-loss %.2f must be positive", sl)
		}
	}
	if len(c.Grid.TPPercents) == 0 {
		return fmt.Errorf("analysis config: grid tp_percents is empty")
	}
	for _, tp := range c.Grid.TPPercents {
		if tp <= 0 {
			return fmt.Errorf("analysis config: grid take-profit %.2f must be positive", tp)
		}
	}

	if c.Stability.Window < 1 {
		return fmt.Errorf("analysis config: stability window must be >= 1")
	}
	if c.Activation.MaxActive < 0 {
		return fmt.Errorf("analysis config: max_active must be >= 0")
	}

	return nil
}
