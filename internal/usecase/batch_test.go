package usecase

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/pkg/cache"
	"TurtleStock/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

// trendingBars returns n daily bars with strictly rising closes, so the
// latest close ties the prior 20-day high and clears both moving averages.
func trendingBars(n int) []models.PriceBar {
	bars := make([]models.PriceBar, 0, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		bars = append(bars, models.PriceBar{
			Date: day.AddDate(0, 0, i), Open: c - 1, High: c, Low: c - 2, Close: c, Volume: 1000,
		})
	}
	return bars
}

// flatBars returns n identical bars: never a breakout.
func flatBars(n int) []models.PriceBar {
	bars := make([]models.PriceBar, 0, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars = append(bars, models.PriceBar{
			Date: day.AddDate(0, 0, i), Open: 50, High: 51, Low: 49, Close: 50, Volume: 1000,
		})
	}
	return bars
}

type fakeBars struct {
	mu       sync.Mutex
	bars     map[string][]models.PriceBar
	failures map[string]int // remaining transient failures per symbol
	calls    map[string]int
}

func (f *fakeBars) DailyBars(_ context.Context, symbol string, _ int) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	if f.failures[symbol] > 0 {
		f.failures[symbol]--
		return nil, errs.System("transient fetch failure")
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errs.DataUnavailable("no candle data for %s", symbol)
	}
	return bars, nil
}

type fakeSignalStore struct {
	mu     sync.Mutex
	stored []*models.Signal
	err    error
}

func (f *fakeSignalStore) UpsertBatch(_ context.Context, signals []*models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, signals...)
	return nil
}

func (f *fakeSignalStore) List(context.Context, time.Time, models.Scope) ([]*models.Signal, error) {
	return nil, nil
}

func (f *fakeSignalStore) LatestDate(_ context.Context, scope models.Scope) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest time.Time
	for _, s := range f.stored {
		if s.Scope == scope && s.Date.After(latest) {
			latest = s.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, errs.DataUnavailable("no signal rows")
	}
	return latest, nil
}

func (f *fakeSignalStore) Health(context.Context) error { return nil }

type fakeRunStore struct {
	mu   sync.Mutex
	runs []*models.SchedulerRun
}

func (f *fakeRunStore) Create(_ context.Context, run *models.SchedulerRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.ID = uint(len(f.runs) + 1)
	cp := *run
	f.runs = append(f.runs, &cp)
	return nil
}

func (f *fakeRunStore) Finish(_ context.Context, run *models.SchedulerRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.runs {
		if r.ID == run.ID {
			cp := *run
			f.runs[i] = &cp
		}
	}
	return nil
}

func (f *fakeRunStore) Latest(context.Context) (*models.SchedulerRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil, errs.DataUnavailable("no runs recorded")
	}
	return f.runs[len(f.runs)-1], nil
}

func (f *fakeRunStore) LastSuccessful(context.Context) (*models.SchedulerRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.runs) - 1; i >= 0; i-- {
		if f.runs[i].Status == models.RunStatusSuccess {
			return f.runs[i], nil
		}
	}
	return nil, errs.DataUnavailable("no runs recorded")
}

type fakeLock struct {
	mu   sync.Mutex
	held bool
}

func (f *fakeLock) Acquire(context.Context, time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*models.Signal
}

func (f *fakePublisher) PublishTriggered(_ context.Context, _ uint, signals []*models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range signals {
		if s.Triggered {
			f.published = append(f.published, s)
		}
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct{}

func (fakeMetrics) RecordRunResult(string, float64) {}
func (fakeMetrics) RecordSymbols(int, int)          {}
func (fakeMetrics) RecordSignalsTriggered(int)      {}
func (fakeMetrics) RecordLedgerOp(string)           {}
func (fakeMetrics) RecordError(string)              {}
func (fakeMetrics) RecordLastPrice(string, float64) {}

type batchFixture struct {
	runner    *BatchRunner
	bars      *fakeBars
	signals   *fakeSignalStore
	runs      *fakeRunStore
	lock      *fakeLock
	publisher *fakePublisher
}

func newBatchFixture(t *testing.T, symbols []string, bars *fakeBars, retries int) *batchFixture {
	f := &batchFixture{
		bars:      bars,
		signals:   &fakeSignalStore{},
		runs:      &fakeRunStore{},
		lock:      &fakeLock{},
		publisher: &fakePublisher{},
	}
	f.runner = NewBatchRunner(BatchConfig{
		Symbols:          symbols,
		HistoryDays:      400,
		Workers:          4,
		PerSymbolTimeout: time.Second,
		PerSymbolRetries: retries,
		LockTTL:          time.Minute,
	}, bars, f.signals, f.runs, f.lock, f.publisher, cache.NewMemoryCache(), fakeMetrics{}, testLogger(t))
	return f
}

func TestBatchRunSuccess(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{
		"AAPL": trendingBars(300),
		"KO":   flatBars(300),
	}}
	f := newBatchFixture(t, []string{"AAPL", "KO"}, bars, 0)

	run, err := f.runner.Run(context.Background(), models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusSuccess {
		t.Fatalf("status = %v, want success", run.Status)
	}
	if run.SymbolsProcessed != 2 || run.SymbolsFailed != 0 {
		t.Fatalf("processed/failed = %d/%d", run.SymbolsProcessed, run.SymbolsFailed)
	}
	if len(f.signals.stored) != 2 {
		t.Fatalf("stored %d signals, want 2", len(f.signals.stored))
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("published %d triggered events, want 1 (AAPL)", len(f.publisher.published))
	}
	if f.publisher.published[0].Symbol != "AAPL" {
		t.Fatalf("published symbol = %s", f.publisher.published[0].Symbol)
	}
	if f.lock.held {
		t.Fatal("lock not released after run")
	}
}

func TestBatchRunTwiceIsIdempotent(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{
		"AAPL": trendingBars(300),
		"KO":   flatBars(300),
	}}
	f := newBatchFixture(t, []string{"AAPL", "KO"}, bars, 0)

	first, err := f.runner.Run(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.runner.Run(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatal(err)
	}

	if len(f.signals.stored) != 4 {
		t.Fatalf("stored %d signals across two runs, want 4", len(f.signals.stored))
	}
	bySymbol := func(rows []*models.Signal) map[string]*models.Signal {
		m := make(map[string]*models.Signal, len(rows))
		for _, s := range rows {
			m[s.Symbol] = s
		}
		return m
	}
	firstRows := bySymbol(f.signals.stored[:2])
	secondRows := bySymbol(f.signals.stored[2:])
	for sym, a := range firstRows {
		b, ok := secondRows[sym]
		if !ok {
			t.Fatalf("second run missing %s", sym)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("rows diverge for %s:\nfirst  %+v\nsecond %+v", sym, a, b)
		}
	}

	if first.Status != second.Status {
		t.Fatalf("status diverges: %v vs %v", first.Status, second.Status)
	}
	if first.SymbolsProcessed != second.SymbolsProcessed || first.SymbolsFailed != second.SymbolsFailed {
		t.Fatalf("counts diverge: %d/%d vs %d/%d",
			first.SymbolsProcessed, first.SymbolsFailed,
			second.SymbolsProcessed, second.SymbolsFailed)
	}
}

func TestBatchRunShortHistoryIsPartial(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{
		"AAPL": trendingBars(300),
		"IPO":  flatBars(100), // under the one-year floor
	}}
	f := newBatchFixture(t, []string{"AAPL", "IPO"}, bars, 0)

	run, err := f.runner.Run(context.Background(), models.TriggerScheduled)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusPartial {
		t.Fatalf("status = %v, want partial_failure", run.Status)
	}
	if run.SymbolsProcessed != 1 || run.SymbolsFailed != 1 {
		t.Fatalf("processed/failed = %d/%d", run.SymbolsProcessed, run.SymbolsFailed)
	}
	if len(f.signals.stored) != 1 {
		t.Fatalf("stored %d signals, want 1", len(f.signals.stored))
	}
}

func TestBatchRunAllFailed(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{}}
	f := newBatchFixture(t, []string{"A", "B"}, bars, 0)

	run, err := f.runner.Run(context.Background(), models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("status = %v, want failed", run.Status)
	}
}

func TestBatchRunConflictWhenLocked(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{"AAPL": trendingBars(300)}}
	f := newBatchFixture(t, []string{"AAPL"}, bars, 0)
	f.lock.held = true

	_, err := f.runner.Run(context.Background(), models.TriggerManual)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("kind = %v, want conflict", errs.KindOf(err))
	}
	if len(f.runs.runs) != 0 {
		t.Fatal("no run record should be written on a rejected trigger")
	}
}

func TestBatchRunRetriesTransientFailures(t *testing.T) {
	bars := &fakeBars{
		bars:     map[string][]models.PriceBar{"AAPL": trendingBars(300)},
		failures: map[string]int{"AAPL": 2},
	}
	f := newBatchFixture(t, []string{"AAPL"}, bars, 2)

	run, err := f.runner.Run(context.Background(), models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusSuccess {
		t.Fatalf("status = %v, want success after retries", run.Status)
	}
	if bars.calls["AAPL"] != 3 {
		t.Fatalf("calls = %d, want 3", bars.calls["AAPL"])
	}
}

func TestBatchRunDoesNotRetryShortHistory(t *testing.T) {
	bars := &fakeBars{bars: map[string][]models.PriceBar{"IPO": flatBars(10)}}
	f := newBatchFixture(t, []string{"IPO"}, bars, 3)

	run, err := f.runner.Run(context.Background(), models.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("status = %v, want failed", run.Status)
	}
	if bars.calls["IPO"] != 1 {
		t.Fatalf("calls = %d, deterministic failures must not be retried", bars.calls["IPO"])
	}
}
