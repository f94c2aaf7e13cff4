package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/cache"
)

type memSignalStore struct {
	mu        sync.Mutex
	rows      map[string][]*models.Signal // keyed by date
	latest    time.Time
	listCalls int
}

func (s *memSignalStore) UpsertBatch(context.Context, []*models.Signal) error { return nil }

func (s *memSignalStore) List(_ context.Context, date time.Time, _ models.Scope) ([]*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.rows[date.Format("2006-01-02")], nil
}

func (s *memSignalStore) LatestDate(context.Context, models.Scope) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest.IsZero() {
		return time.Time{}, errs.DataUnavailable("no signal rows")
	}
	return s.latest, nil
}

func (s *memSignalStore) Health(context.Context) error { return nil }

func marketSignal(symbol string, date time.Time, triggered bool) *models.Signal {
	return &models.Signal{
		Symbol:    symbol,
		Date:      date,
		Scope:     models.MarketScope(),
		Evaluable: true,
		Triggered: triggered,
	}
}

func TestSignalsListDefaultsToLatestEvaluatedDay(t *testing.T) {
	// The last run evaluated Friday; a dateless request on the following
	// weekend must return Friday's rows, not an empty set for "today".
	friday := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)
	store := &memSignalStore{
		rows: map[string][]*models.Signal{
			"2025-04-04": {marketSignal("AAPL", friday, true)},
		},
		latest: friday,
	}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	signals := NewSignals(store, mem)

	rows, err := signals.List(context.Background(), time.Time{}, models.MarketScope(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Symbol != "AAPL" {
		t.Fatalf("rows = %+v, want the latest evaluated day's rows", rows)
	}
}

func TestSignalsListServedFromCacheOnRepeat(t *testing.T) {
	day := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)
	store := &memSignalStore{
		rows: map[string][]*models.Signal{
			"2025-04-04": {
				marketSignal("AAPL", day, true),
				marketSignal("KO", day, false),
			},
		},
		latest: day,
	}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	signals := NewSignals(store, mem)

	for i := 0; i < 3; i++ {
		rows, err := signals.List(context.Background(), day, models.MarketScope(), false)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("pass %d: rows = %d, want 2", i, len(rows))
		}
	}
	if store.listCalls != 1 {
		t.Fatalf("store hit %d times, want 1 (cache should answer repeats)", store.listCalls)
	}
}

func TestSignalsListBuyOnlyFilters(t *testing.T) {
	day := time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)
	store := &memSignalStore{
		rows: map[string][]*models.Signal{
			"2025-04-04": {
				marketSignal("AAPL", day, true),
				marketSignal("KO", day, false),
			},
		},
		latest: day,
	}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	signals := NewSignals(store, mem)

	rows, err := signals.List(context.Background(), day, models.MarketScope(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Symbol != "AAPL" {
		t.Fatalf("buy-only rows = %+v, want only the triggered row", rows)
	}
}
