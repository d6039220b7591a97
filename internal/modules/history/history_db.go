package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// BarSource provides read-only access to historical candles.
// Implementations must return bars sorted by open time with no duplicate
// timestamps per symbol and resolution.
type BarSource interface {
	GetBars(symbol string, res domain.Resolution, from, to time.Time) ([]domain.Bar, error)
}

// HistoryDB reads candles from per-symbol SQLite history databases.
// Each symbol has its own file under historyDir, e.g. XAUUSD.db with
// candles_h1 and candles_m5 tables.
type HistoryDB struct {
	historyDir string
	log        zerolog.Logger
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(historyDir string, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

var tableByResolution = map[domain.Resolution]string{
	domain.ResolutionH1: "candles_h1",
	domain.ResolutionM5: "candles_m5",
}

// GetBars fetches candles for a symbol at the given resolution within
// [from, to). A zero `to` means "until the end of available history".
func (h *HistoryDB) GetBars(symbol string, res domain.Resolution, from, to time.Time) ([]domain.Bar, error) {
	table, ok := tableByResolution[res]
	if !ok {
		return nil, fmt.Errorf("unknown resolution: %s", res)
	}

	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT open_time, open, high, low, close, volume
		FROM %s
		WHERE open_time >= ?`, table)
	args := []interface{}{from.UTC().Unix()}

	if !to.IsZero() {
		query += " AND open_time < ?"
		args = append(args, to.UTC().Unix())
	}
	query += " ORDER BY open_time"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s candles for %s: %w", res, symbol, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	var lastTime int64
	for rows.Next() {
		var openTime int64
		var b domain.Bar
		var volume sql.NullFloat64

		if err := rows.Scan(&openTime, &b.Open, &b.High, &b.Low, &b.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		if len(bars) > 0 && openTime <= lastTime {
			return nil, fmt.Errorf("duplicate or unordered candle at %d for %s/%s", openTime, symbol, res)
		}
		lastTime = openTime

		b.OpenTime = time.Unix(openTime, 0).UTC()
		if volume.Valid {
			b.Volume = volume.Float64
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return bars, nil
}

// openHistoryDB opens the history database for a symbol
func (h *HistoryDB) openHistoryDB(symbol string) (*sql.DB, error) {
	dbSymbol := strings.ReplaceAll(symbol, ".", "_")
	dbPath := filepath.Join(h.historyDir, dbSymbol+".db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	return db, nil
}
