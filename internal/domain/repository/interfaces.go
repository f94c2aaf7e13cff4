package repository

import (
	"context"
	"time"

	"TurtleStock/internal/domain/models"
)

// SignalStore persists batch evaluation output. Upserts are keyed by
// (symbol, date, scope): re-running a date overwrites, never duplicates.
type SignalStore interface {
	UpsertBatch(ctx context.Context, signals []*models.Signal) error
	List(ctx context.Context, date time.Time, scope models.Scope) ([]*models.Signal, error)
	// LatestDate returns the most recent trading day with rows for scope.
	LatestDate(ctx context.Context, scope models.Scope) (time.Time, error)
	Health(ctx context.Context) error
}

// RunStore is the append-only scheduler run log.
type RunStore interface {
	Create(ctx context.Context, run *models.SchedulerRun) error
	Finish(ctx context.Context, run *models.SchedulerRun) error
	Latest(ctx context.Context) (*models.SchedulerRun, error)
	LastSuccessful(ctx context.Context) (*models.SchedulerRun, error)
}

// RunLock is the single-flight guard on the run-status record. Acquire is a
// compare-and-swap: it returns false, without blocking, when a run is
// already active anywhere in the system.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// PortfolioStore owns holdings, lots and the realized-trade log. SaveHolding
// and ApplySell are atomic: either the whole mutation lands or none of it.
type PortfolioStore interface {
	GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error)
	ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error)
	SaveHolding(ctx context.Context, h *models.Holding) error
	DeleteHolding(ctx context.Context, userID, symbol string) error
	// ApplySell persists the reduced (or removed) holding together with its
	// trade record in one transaction.
	ApplySell(ctx context.Context, h *models.Holding, t *models.Trade, remove bool) error
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)
}

// SettingsStore owns per-user risk settings.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Save(ctx context.Context, s *models.UserSettings) error
}

// BarProvider supplies ordered daily OHLCV history, oldest first, ending at
// the latest available trading day.
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
}

// QuoteProvider supplies a current price snapshot for valuation.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// EventPublisher pushes triggered-signal events to downstream consumers
// after a completed run.
type EventPublisher interface {
	PublishTriggered(ctx context.Context, runID uint, signals []*models.Signal) error
	Close() error
}

// Metrics abstracts the Prometheus recorder for the engine.
type Metrics interface {
	RecordRunResult(status string, seconds float64)
	RecordSymbols(processed, failed int)
	RecordSignalsTriggered(n int)
	RecordLedgerOp(op string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
}
