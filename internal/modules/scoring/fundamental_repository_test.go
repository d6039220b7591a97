package scoring

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/longentry/internal/database"
)

func testFundamentals(t *testing.T) *FundamentalRepository {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return NewFundamentalRepository(db.Conn(), zerolog.Nop())
}

func TestFundamentalSetAndGet(t *testing.T) {
	repo := testFundamentals(t)
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Set("XAUUSD", weekStart, 65.5))

	got, err := repo.Get("XAUUSD", weekStart)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 65.5, *got)
}

func TestFundamentalGetMissingIsNil(t *testing.T) {
	repo := testFundamentals(t)
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	got, err := repo.Get("US500", weekStart)
	require.NoError(t, err)
	assert.Nil(t, got, "missing score must be nil (unscored), not zero")
}

func TestFundamentalSetOverwrites(t *testing.T) {
	repo := testFundamentals(t)
	weekStart := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Set("XAUUSD", weekStart, 65.5))
	require.NoError(t, repo.Set("XAUUSD", weekStart, 40.0))

	got, err := repo.Get("XAUUSD", weekStart)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 40.0, *got)
}

func TestFundamentalScoresArePerWeek(t *testing.T) {
	repo := testFundamentals(t)
	week1 := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)

	require.NoError(t, repo.Set("XAUUSD", week1, 65.5))

	got, err := repo.Get("XAUUSD", week2)
	require.NoError(t, err)
	assert.Nil(t, got, "a score set for one week must not leak into the next")
}
