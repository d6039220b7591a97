package stability

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/longentry/internal/domain"
)

// fakeStore is an in-memory HistoryStore keeping entries newest-first,
// matching the repository contract.
type fakeStore struct {
	entries map[string][]struct {
		week  time.Time
		combo domain.ParamCombo
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string][]struct {
		week  time.Time
		combo domain.ParamCombo
	}{}}
}

func (f *fakeStore) GetHistory(symbol string, before time.Time, limit int) ([]domain.ParamCombo, error) {
	var combos []domain.ParamCombo
	for _, e := range f.entries[symbol] {
		if !e.week.Before(before) {
			continue
		}
		combos = append(combos, e.combo)
		if len(combos) == limit {
			break
		}
	}
	return combos, nil
}

func (f *fakeStore) Append(symbol string, weekStart time.Time, combo domain.ParamCombo) error {
	entry := struct {
		week  time.Time
		combo domain.ParamCombo
	}{weekStart, combo}
	// newest first
	f.entries[symbol] = append([]struct {
		week  time.Time
		combo domain.ParamCombo
	}{entry}, f.entries[symbol]...)
	return nil
}

func (f *fakeStore) Prune(symbol string, keep int) error {
	if len(f.entries[symbol]) > keep {
		f.entries[symbol] = f.entries[symbol][:keep]
	}
	return nil
}

func week(n int) time.Time {
	// Mondays, n weeks after 2025-01-06
	return time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

func TestTrackerFreshInstrumentScores100(t *testing.T) {
	tracker := NewTracker(newFakeStore(), 8, zerolog.Nop())

	score, err := tracker.Score("XAUUSD", week(0), domain.ParamCombo{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 100 {
		t.Errorf("fresh instrument score = %v, want 100", score)
	}
}

func TestTrackerAllWeeksMatching(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 8, zerolog.Nop())
	combo := domain.ParamCombo{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0}

	var score float64
	var err error
	for w := 0; w < 5; w++ {
		score, err = tracker.Score("XAUUSD", week(w), combo)
		if err != nil {
			t.Fatalf("week %d: %v", w, err)
		}
	}
	if score != 100 {
		t.Errorf("fully stable score = %v, want 100", score)
	}
}

func TestTrackerNothingMatching(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 8, zerolog.Nop())

	combos := []domain.ParamCombo{
		{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0},
		{EntryHour: 10, SLPercent: 0.5, TPPercent: 1.0},
		{EntryHour: 11, SLPercent: 2.0, TPPercent: 4.0},
		{EntryHour: 12, SLPercent: 0.3, TPPercent: 0.5},
	}

	var score float64
	var err error
	for w, combo := range combos {
		score, err = tracker.Score("XAUUSD", week(w), combo)
		if err != nil {
			t.Fatalf("week %d: %v", w, err)
		}
	}
	// Window of 4 weeks, only the current week matches itself
	if score != 25 {
		t.Errorf("unstable score = %v, want 25", score)
	}
}

func TestTrackerPartialMatch(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 8, zerolog.Nop())

	a := domain.ParamCombo{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0}
	b := domain.ParamCombo{EntryHour: 10, SLPercent: 0.5, TPPercent: 1.0}

	sequence := []domain.ParamCombo{a, b, a, a}
	var score float64
	var err error
	for w, combo := range sequence {
		score, err = tracker.Score("XAUUSD", week(w), combo)
		if err != nil {
			t.Fatalf("week %d: %v", w, err)
		}
	}
	// Window: a, b, a, a -> 3 of 4 match the current best
	if score != 75 {
		t.Errorf("partial-match score = %v, want 75", score)
	}
}

func TestTrackerWindowEviction(t *testing.T) {
	store := newFakeStore()
	window := 3
	tracker := NewTracker(store, window, zerolog.Nop())

	a := domain.ParamCombo{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0}
	b := domain.ParamCombo{EntryHour: 10, SLPercent: 0.5, TPPercent: 1.0}

	// Weeks: a, b, b, b. In week 3 the window is the current week plus
	// 2 prior weeks (b, b); the old a has aged out.
	sequence := []domain.ParamCombo{a, b, b, b}
	var score float64
	var err error
	for w, combo := range sequence {
		score, err = tracker.Score("XAUUSD", week(w), combo)
		if err != nil {
			t.Fatalf("week %d: %v", w, err)
		}
	}
	if score != 100 {
		t.Errorf("score after eviction = %v, want 100", score)
	}
	if len(store.entries["XAUUSD"]) != window {
		t.Errorf("stored entries = %d, want pruned to %d", len(store.entries["XAUUSD"]), window)
	}
}

func TestTrackerSymbolsIndependent(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, 8, zerolog.Nop())

	a := domain.ParamCombo{EntryHour: 9, SLPercent: 1.0, TPPercent: 2.0}
	b := domain.ParamCombo{EntryHour: 10, SLPercent: 0.5, TPPercent: 1.0}

	if _, err := tracker.Score("XAUUSD", week(0), a); err != nil {
		t.Fatal(err)
	}
	score, err := tracker.Score("US500", week(1), b)
	if err != nil {
		t.Fatal(err)
	}
	if score != 100 {
		t.Errorf("US500 first week score = %v, want 100 (history is per symbol)", score)
	}
}
