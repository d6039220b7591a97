package stability

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

const dateFormat = "2006-01-02"

// Repository persists the per-symbol history of weekly best combinations.
// The tracker is the only writer; rows are append-only and pruned beyond
// the configured window.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new param history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "param_history").Logger(),
	}
}

// GetHistory returns the best combinations of the weeks before the given
// week, most recent first, at most limit entries.
func (r *Repository) GetHistory(symbol string, before time.Time, limit int) ([]domain.ParamCombo, error) {
	query := `
		SELECT entry_hour, sl_percent, tp_percent
		FROM param_history
		WHERE symbol = ? AND week_start < ?
		ORDER BY week_start DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, symbol, before.Format(dateFormat), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query param history: %w", err)
	}
	defer rows.Close()

	var history []domain.ParamCombo
	for rows.Next() {
		var c domain.ParamCombo
		if err := rows.Scan(&c.EntryHour, &c.SLPercent, &c.TPPercent); err != nil {
			return nil, fmt.Errorf("failed to scan param history: %w", err)
		}
		history = append(history, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating param history: %w", err)
	}

	return history, nil
}

// Append records the current week's best combination. Re-running the same
// week overwrites that week's row instead of duplicating it.
func (r *Repository) Append(symbol string, weekStart time.Time, combo domain.ParamCombo) error {
	query := `
		INSERT INTO param_history (symbol, week_start, entry_hour, sl_percent, tp_percent)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol, week_start)
		DO UPDATE SET
			entry_hour = excluded.entry_hour,
			sl_percent = excluded.sl_percent,
			tp_percent = excluded.tp_percent
	`

	_, err := r.db.Exec(query, symbol, weekStart.Format(dateFormat), combo.EntryHour, combo.SLPercent, combo.TPPercent)
	if err != nil {
		return fmt.Errorf("failed to append param history: %w", err)
	}
	return nil
}

// Prune evicts entries beyond the most recent keep weeks for a symbol
func (r *Repository) Prune(symbol string, keep int) error {
	query := `
		DELETE FROM param_history
		WHERE symbol = ? AND week_start NOT IN (
			SELECT week_start FROM param_history
			WHERE symbol = ?
			ORDER BY week_start DESC
			LIMIT ?
		)
	`

	_, err := r.db.Exec(query, symbol, symbol, keep)
	if err != nil {
		return fmt.Errorf("failed to prune param history: %w", err)
	}
	return nil
}
