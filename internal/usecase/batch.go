package usecase

import (
	"context"
	"sync"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/services/indicators"
	"TurtleStock/internal/services/signal"
	"TurtleStock/pkg/cache"
	"TurtleStock/pkg/logger"
	"TurtleStock/pkg/util"
)

// BatchConfig sizes one evaluation sweep over the symbol universe.
type BatchConfig struct {
	Symbols          []string
	HistoryDays      int
	Workers          int
	PerSymbolTimeout time.Duration
	PerSymbolRetries int
	LockTTL          time.Duration
}

// BatchRunner evaluates the whole universe once per invocation: fetch daily
// history, compute indicators, persist one market-scope signal row per symbol
// and emit events for the triggered subset.
//
// Runs are single-flight across the deployment. A second Run while one is
// active fails fast with a conflict instead of queueing.
type BatchRunner struct {
	cfg       BatchConfig
	bars      repository.BarProvider
	signals   repository.SignalStore
	runs      repository.RunStore
	lock      repository.RunLock
	publisher repository.EventPublisher
	cache     cache.Service
	metrics   repository.Metrics
	log       *logger.Logger
}

func NewBatchRunner(cfg BatchConfig,
	bars repository.BarProvider,
	signals repository.SignalStore,
	runs repository.RunStore,
	lock repository.RunLock,
	publisher repository.EventPublisher,
	c cache.Service,
	metrics repository.Metrics,
	log *logger.Logger) *BatchRunner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &BatchRunner{
		cfg:       cfg,
		bars:      bars,
		signals:   signals,
		runs:      runs,
		lock:      lock,
		publisher: publisher,
		cache:     c,
		metrics:   metrics,
		log:       log,
	}
}

type symbolResult struct {
	symbol string
	signal *models.Signal
	err    error
}

// Run executes one batch sweep. The returned run record carries the terminal
// status; a conflict error means another run already held the lock.
func (r *BatchRunner) Run(ctx context.Context, trigger models.RunTrigger) (*models.SchedulerRun, error) {
	ok, err := r.lock.Acquire(ctx, r.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.metrics.RecordError(string(errs.KindConflict))
		return nil, errs.Conflict("a signal run is already in progress")
	}
	defer func() {
		if err := r.lock.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Error("run lock release failed", logger.Error(err))
		}
	}()

	run := &models.SchedulerRun{
		StartedAt:   time.Now().UTC(),
		Status:      models.RunStatusRunning,
		TriggeredBy: trigger,
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	r.log.Info("batch run started",
		logger.Uint("run_id", run.ID),
		logger.String("trigger", string(trigger)),
		logger.Int("symbols", len(r.cfg.Symbols)))

	results := r.sweep(ctx)

	var (
		signals []*models.Signal
		failed  int
	)
	for _, res := range results {
		if res.err != nil {
			failed++
			r.metrics.RecordError(string(errs.KindOf(res.err)))
			r.log.Warn("symbol evaluation failed",
				logger.String("symbol", res.symbol), logger.Error(res.err))
			continue
		}
		signals = append(signals, res.signal)
	}

	status := terminalStatus(len(r.cfg.Symbols), failed)
	if len(signals) > 0 {
		if err := r.signals.UpsertBatch(ctx, signals); err != nil {
			r.log.Error("signal upsert failed", logger.Error(err))
			status = models.RunStatusFailed
		} else {
			// Cached lists now describe stale rows; drop them so the next
			// read goes back to the store.
			if err := r.cache.DeleteByPattern(ctx, cache.BuildPattern(signalCachePrefix)); err != nil {
				r.log.Warn("signal cache invalidation failed", logger.Error(err))
			}
			if err := r.publisher.PublishTriggered(ctx, run.ID, signals); err != nil {
				// Events are best effort: the stored rows are the source of truth.
				r.log.Error("triggered event publish failed", logger.Error(err))
			}
		}
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	run.SymbolsProcessed = len(results) - failed
	run.SymbolsFailed = failed
	if err := r.runs.Finish(ctx, run); err != nil {
		r.log.Error("run record update failed", logger.Error(err))
	}

	triggered := 0
	for _, s := range signals {
		if s.Triggered {
			triggered++
		}
	}
	elapsed := now.Sub(run.StartedAt).Seconds()
	r.metrics.RecordRunResult(string(status), elapsed)
	r.metrics.RecordSymbols(run.SymbolsProcessed, run.SymbolsFailed)
	r.metrics.RecordSignalsTriggered(triggered)

	r.log.Info("batch run finished",
		logger.Uint("run_id", run.ID),
		logger.String("status", string(status)),
		logger.Int("processed", run.SymbolsProcessed),
		logger.Int("failed", run.SymbolsFailed),
		logger.Int("triggered", triggered),
		logger.Float64("seconds", elapsed))
	return run, nil
}

// sweep fans the universe out over a bounded worker pool. One symbol's
// failure never touches another's result.
func (r *BatchRunner) sweep(ctx context.Context) []symbolResult {
	jobs := make(chan string)
	out := make(chan symbolResult)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				sig, err := r.evaluateSymbol(ctx, sym)
				out <- symbolResult{symbol: sym, signal: sig, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, sym := range r.cfg.Symbols {
			select {
			case jobs <- sym:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]symbolResult, 0, len(r.cfg.Symbols))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// evaluateSymbol fetches history and evaluates one symbol, retrying transient
// failures up to the configured budget. Short history is deterministic and is
// not retried.
func (r *BatchRunner) evaluateSymbol(ctx context.Context, symbol string) (*models.Signal, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.PerSymbolRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, errs.System("run cancelled").WithError(ctx.Err())
		}

		symCtx, cancel := context.WithTimeout(ctx, r.cfg.PerSymbolTimeout)
		sig, err := r.evaluateOnce(symCtx, symbol)
		cancel()
		if err == nil {
			return sig, nil
		}
		lastErr = err
		if errs.KindOf(err) != errs.KindSystem {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *BatchRunner) evaluateOnce(ctx context.Context, symbol string) (*models.Signal, error) {
	bars, err := r.bars.DailyBars(ctx, symbol, r.cfg.HistoryDays)
	if err != nil {
		return nil, err
	}
	if len(bars) < indicators.MinHistory {
		return nil, errs.DataUnavailable("%s has %d bars, need %d",
			symbol, len(bars), indicators.MinHistory)
	}

	set := indicators.Compute(symbol, bars)
	set.Date = util.Day(set.Date)
	return signal.Evaluate(set, models.MarketScope()), nil
}

// Status reports the most recent run alongside the last fully successful one.
func (r *BatchRunner) Status(ctx context.Context) (latest, lastSuccess *models.SchedulerRun, err error) {
	latest, err = r.runs.Latest(ctx)
	if err != nil && !errs.IsKind(err, errs.KindDataUnavailable) {
		return nil, nil, err
	}
	lastSuccess, err = r.runs.LastSuccessful(ctx)
	if err != nil && !errs.IsKind(err, errs.KindDataUnavailable) {
		return nil, nil, err
	}
	return latest, lastSuccess, nil
}

func terminalStatus(total, failed int) models.RunStatus {
	switch {
	case total > 0 && failed == total:
		return models.RunStatusFailed
	case failed > 0:
		return models.RunStatusPartial
	default:
		return models.RunStatusSuccess
	}
}
