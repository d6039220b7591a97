package domain

import "time"

// Resolution identifies a candle timeframe
type Resolution string

const (
	ResolutionH1 Resolution = "H1" // coarse, hourly
	ResolutionM5 Resolution = "M5" // fine, five-minute
)

// Bar represents a single OHLCV candle.
// Invariant: high >= max(open, close) and low <= min(open, close).
type Bar struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// ParamCombo is one point of the backtest parameter grid.
// Immutable value; comparable with ==.
type ParamCombo struct {
	EntryHour int     `json:"entry_hour"` // 0-23, broker server time
	SLPercent float64 `json:"sl_percent"`
	TPPercent float64 `json:"tp_percent"`
}

// TradeOutcome is the resolution of a simulated trade
type TradeOutcome string

const (
	OutcomeWin  TradeOutcome = "win"
	OutcomeLoss TradeOutcome = "loss"
)

// SimulatedTrade is one resolved trade produced by the simulator.
// Trades that never touch either level before history ends are not emitted.
type SimulatedTrade struct {
	EntryTime  time.Time    `json:"entry_time"`
	EntryPrice float64      `json:"entry_price"`
	ExitTime   time.Time    `json:"exit_time"`
	ExitPrice  float64      `json:"exit_price"`
	Outcome    TradeOutcome `json:"outcome"`
	ReturnPct  float64      `json:"return_pct"`
}

// BacktestAggregate holds the per-combination statistics of one sweep
type BacktestAggregate struct {
	Combo          ParamCombo `json:"combo"`
	TotalReturnPct float64    `json:"total_return_pct"`
	WinRate        float64    `json:"win_rate"` // 0-100
	ProfitFactor   float64    `json:"profit_factor"`
	MaxDrawdownPct float64    `json:"max_drawdown_pct"`
	TradeCount     int        `json:"trade_count"`
	Wins           int        `json:"wins"`
	Losses         int        `json:"losses"`
}

// Market describes one instrument in the scanned universe
type Market struct {
	Symbol       string  `yaml:"symbol" json:"symbol"`
	Name         string  `yaml:"name" json:"name"`
	Spread       float64 `yaml:"spread" json:"spread"`               // typical full spread in price points
	SessionStart int     `yaml:"session_start" json:"session_start"` // first valid entry hour, inclusive
	SessionEnd   int     `yaml:"session_end" json:"session_end"`     // last valid entry hour, inclusive
}

// WeeklyScore is the persisted result of one instrument's weekly run.
// Superseded, never edited, by the next week's run; only the manual
// override handler may flip IsActive afterwards.
type WeeklyScore struct {
	Symbol    string    `json:"symbol"`
	WeekStart time.Time `json:"week_start"`

	TechnicalScore    float64 `json:"technical_score"`
	TechnicalScored   bool    `json:"technical_scored"`
	BacktestScore     float64 `json:"backtest_score"`
	BacktestScored    bool    `json:"backtest_scored"`
	FundamentalScore  float64 `json:"fundamental_score"`
	FundamentalScored bool    `json:"fundamental_scored"`
	FinalScore        float64 `json:"final_score"`

	Rank                 int  `json:"rank"`
	IsActive             bool `json:"is_active"`
	IsManuallyOverridden bool `json:"is_manually_overridden"`

	// Chosen combination and its aggregate stats; zero values when the
	// sweep produced no result for the week.
	OptEntryHour   int     `json:"opt_entry_hour"`
	OptEntryMinute int     `json:"opt_entry_minute"` // fixed at 0
	OptSLPercent   float64 `json:"opt_sl_percent"`
	OptTPPercent   float64 `json:"opt_tp_percent"`
	BTTotalReturn  float64 `json:"bt_total_return"`
	BTWinRate      float64 `json:"bt_win_rate"`
	BTProfitFactor float64 `json:"bt_profit_factor"`
	BTTotalTrades  int     `json:"bt_total_trades"`
	BTMaxDrawdown  float64 `json:"bt_max_drawdown"`
	BTStability    float64 `json:"bt_param_stability"`
}

// WeekStart returns the Monday of the trading week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
