package scoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const dateFormat = "2006-01-02"

// FundamentalRepository stores externally supplied fundamental sub-scores
// (v1: manual input through the API; later an economic-calendar feed).
type FundamentalRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewFundamentalRepository creates a fundamental score repository
func NewFundamentalRepository(db *sql.DB, log zerolog.Logger) *FundamentalRepository {
	return &FundamentalRepository{
		db:  db,
		log: log.With().Str("repo", "fundamental").Logger(),
	}
}

// Get returns the fundamental score for a symbol and week, or nil when
// the symbol has not been evaluated for that week.
func (r *FundamentalRepository) Get(symbol string, weekStart time.Time) (*float64, error) {
	query := `SELECT score FROM fundamental_scores WHERE symbol = ? AND week_start = ?`

	var score float64
	err := r.db.QueryRow(query, symbol, weekStart.Format(dateFormat)).Scan(&score)
	if err == sql.ErrNoRows {
		return nil, nil // not evaluated, distinct from a zero score
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query fundamental score: %w", err)
	}
	return &score, nil
}

// Set stores or replaces the fundamental score for a symbol and week
func (r *FundamentalRepository) Set(symbol string, weekStart time.Time, score float64) error {
	query := `
		INSERT INTO fundamental_scores (symbol, week_start, score, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (symbol, week_start)
		DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, symbol, weekStart.Format(dateFormat), score)
	if err != nil {
		return fmt.Errorf("failed to store fundamental score: %w", err)
	}
	return nil
}
