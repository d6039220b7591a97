package activation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

const dateFormat = "2006-01-02"

// Repository handles weekly_analysis persistence. A row is written once
// per (symbol, week) by the weekly run and only the manual-override
// handlers may touch it afterwards.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a weekly analysis repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "weekly_analysis").Logger(),
	}
}

// Upsert writes one instrument's weekly record. An existing manual
// override keeps its active flag; everything else is replaced.
func (r *Repository) Upsert(ws *domain.WeeklyScore) error {
	query := `
		INSERT INTO weekly_analysis (
			symbol, week_start,
			technical_score, technical_scored,
			backtest_score, backtest_scored,
			fundamental_score, fundamental_scored,
			final_score, rank, is_active, is_manually_overridden,
			opt_entry_hour, opt_entry_minute, opt_sl_percent, opt_tp_percent,
			bt_total_return, bt_win_rate, bt_profit_factor,
			bt_total_trades, bt_max_drawdown, bt_param_stability
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, week_start)
		DO UPDATE SET
			technical_score = excluded.technical_score,
			technical_scored = excluded.technical_scored,
			backtest_score = excluded.backtest_score,
			backtest_scored = excluded.backtest_scored,
			fundamental_score = excluded.fundamental_score,
			fundamental_scored = excluded.fundamental_scored,
			final_score = excluded.final_score,
			rank = excluded.rank,
			is_active = CASE
				WHEN weekly_analysis.is_manually_overridden = 1 THEN weekly_analysis.is_active
				ELSE excluded.is_active
			END,
			is_manually_overridden = weekly_analysis.is_manually_overridden,
			opt_entry_hour = excluded.opt_entry_hour,
			opt_entry_minute = excluded.opt_entry_minute,
			opt_sl_percent = excluded.opt_sl_percent,
			opt_tp_percent = excluded.opt_tp_percent,
			bt_total_return = excluded.bt_total_return,
			bt_win_rate = excluded.bt_win_rate,
			bt_profit_factor = excluded.bt_profit_factor,
			bt_total_trades = excluded.bt_total_trades,
			bt_max_drawdown = excluded.bt_max_drawdown,
			bt_param_stability = excluded.bt_param_stability
	`

	_, err := r.db.Exec(query,
		ws.Symbol, ws.WeekStart.Format(dateFormat),
		ws.TechnicalScore, boolToInt(ws.TechnicalScored),
		ws.BacktestScore, boolToInt(ws.BacktestScored),
		ws.FundamentalScore, boolToInt(ws.FundamentalScored),
		ws.FinalScore, ws.Rank, boolToInt(ws.IsActive), boolToInt(ws.IsManuallyOverridden),
		ws.OptEntryHour, ws.OptEntryMinute, ws.OptSLPercent, ws.OptTPPercent,
		ws.BTTotalReturn, ws.BTWinRate, ws.BTProfitFactor,
		ws.BTTotalTrades, ws.BTMaxDrawdown, ws.BTStability,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert weekly analysis for %s: %w", ws.Symbol, err)
	}
	return nil
}

// GetWeek returns all records for a week ordered by rank
func (r *Repository) GetWeek(weekStart time.Time) ([]domain.WeeklyScore, error) {
	query := selectColumns + `
		FROM weekly_analysis
		WHERE week_start = ?
		ORDER BY rank, symbol
	`

	rows, err := r.db.Query(query, weekStart.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly analysis: %w", err)
	}
	defer rows.Close()

	var scores []domain.WeeklyScore
	for rows.Next() {
		ws, err := scanWeeklyScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weekly analysis: %w", err)
	}

	return scores, nil
}

// Get returns one symbol's record for a week, or nil when missing
func (r *Repository) Get(symbol string, weekStart time.Time) (*domain.WeeklyScore, error) {
	query := selectColumns + `
		FROM weekly_analysis
		WHERE symbol = ? AND week_start = ?
	`

	rows, err := r.db.Query(query, symbol, weekStart.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly analysis for %s: %w", symbol, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	ws, err := scanWeeklyScore(rows)
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// GetOverrides returns the manual overrides in force for a week as a
// symbol -> forced-active map.
func (r *Repository) GetOverrides(weekStart time.Time) (map[string]bool, error) {
	query := `
		SELECT symbol, is_active
		FROM weekly_analysis
		WHERE week_start = ? AND is_manually_overridden = 1
	`

	rows, err := r.db.Query(query, weekStart.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	overrides := map[string]bool{}
	for rows.Next() {
		var symbol string
		var active int
		if err := rows.Scan(&symbol, &active); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides[symbol] = active == 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overrides: %w", err)
	}

	return overrides, nil
}

// SetOverride forces a symbol's active state for a week, creating the row
// when the weekly run has not produced one yet.
func (r *Repository) SetOverride(symbol string, weekStart time.Time, active bool) error {
	query := `
		INSERT INTO weekly_analysis (symbol, week_start, is_active, is_manually_overridden)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (symbol, week_start)
		DO UPDATE SET is_active = excluded.is_active, is_manually_overridden = 1
	`

	_, err := r.db.Exec(query, symbol, weekStart.Format(dateFormat), boolToInt(active))
	if err != nil {
		return fmt.Errorf("failed to set override for %s: %w", symbol, err)
	}
	return nil
}

// ClearOverride removes a manual override; the symbol reverts to its
// rank-derived status on the next run.
func (r *Repository) ClearOverride(symbol string, weekStart time.Time) error {
	query := `
		UPDATE weekly_analysis
		SET is_manually_overridden = 0
		WHERE symbol = ? AND week_start = ?
	`

	_, err := r.db.Exec(query, symbol, weekStart.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("failed to clear override for %s: %w", symbol, err)
	}
	return nil
}

// CountActive returns the number of active instruments for a week
func (r *Repository) CountActive(weekStart time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM weekly_analysis WHERE week_start = ? AND is_active = 1`,
		weekStart.Format(dateFormat),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active markets: %w", err)
	}
	return count, nil
}

// Reactivate re-applies the rank/floor rule to an already scored week,
// e.g. after the max-active setting changed. Overridden rows are left
// untouched.
func (r *Repository) Reactivate(weekStart time.Time, maxActive int, minScore float64) error {
	rows, err := r.db.Query(`
		SELECT symbol, final_score, is_manually_overridden
		FROM weekly_analysis
		WHERE week_start = ?
		ORDER BY final_score DESC, symbol
	`, weekStart.Format(dateFormat))
	if err != nil {
		return fmt.Errorf("failed to query week for reactivation: %w", err)
	}
	defer rows.Close()

	type row struct {
		symbol     string
		finalScore float64
		overridden bool
	}
	var entries []row
	for rows.Next() {
		var e row
		var overridden int
		if err := rows.Scan(&e.symbol, &e.finalScore, &overridden); err != nil {
			return fmt.Errorf("failed to scan reactivation row: %w", err)
		}
		e.overridden = overridden == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating reactivation rows: %w", err)
	}

	for i, e := range entries {
		if e.overridden {
			continue
		}
		active := i < maxActive && e.finalScore >= minScore
		if _, err := r.db.Exec(`
			UPDATE weekly_analysis SET is_active = ?
			WHERE symbol = ? AND week_start = ?
		`, boolToInt(active), e.symbol, weekStart.Format(dateFormat)); err != nil {
			return fmt.Errorf("failed to reactivate %s: %w", e.symbol, err)
		}
	}

	return nil
}

const selectColumns = `
	SELECT symbol, week_start,
		technical_score, technical_scored,
		backtest_score, backtest_scored,
		fundamental_score, fundamental_scored,
		final_score, rank, is_active, is_manually_overridden,
		opt_entry_hour, opt_entry_minute, opt_sl_percent, opt_tp_percent,
		bt_total_return, bt_win_rate, bt_profit_factor,
		bt_total_trades, bt_max_drawdown, bt_param_stability
`

func scanWeeklyScore(rows *sql.Rows) (domain.WeeklyScore, error) {
	var ws domain.WeeklyScore
	var weekStart string
	var techScored, btScored, fundScored, active, overridden int

	err := rows.Scan(
		&ws.Symbol, &weekStart,
		&ws.TechnicalScore, &techScored,
		&ws.BacktestScore, &btScored,
		&ws.FundamentalScore, &fundScored,
		&ws.FinalScore, &ws.Rank, &active, &overridden,
		&ws.OptEntryHour, &ws.OptEntryMinute, &ws.OptSLPercent, &ws.OptTPPercent,
		&ws.BTTotalReturn, &ws.BTWinRate, &ws.BTProfitFactor,
		&ws.BTTotalTrades, &ws.BTMaxDrawdown, &ws.BTStability,
	)
	if err != nil {
		return ws, fmt.Errorf("failed to scan weekly score: %w", err)
	}

	ws.WeekStart, err = time.Parse(dateFormat, weekStart)
	if err != nil {
		return ws, fmt.Errorf("failed to parse week start: %w", err)
	}
	ws.TechnicalScored = techScored == 1
	ws.BacktestScored = btScored == 1
	ws.FundamentalScored = fundScored == 1
	ws.IsActive = active == 1
	ws.IsManuallyOverridden = overridden == 1

	return ws, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
