package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"gorm.io/gorm"

	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/handler/api"
	internalrepo "TurtleStock/internal/repository"
	"TurtleStock/internal/scheduler"
	"TurtleStock/internal/service/finnhub"
	"TurtleStock/internal/usecase"
	"TurtleStock/pkg/cache"
	pkgch "TurtleStock/pkg/clickhouse"
	"TurtleStock/pkg/config"
	pkgkafka "TurtleStock/pkg/kafka"
	"TurtleStock/pkg/logger"
	"TurtleStock/pkg/metrics"
	"TurtleStock/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return logger.New(&logger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePostgres opens the relational database and migrates its schema.
func ProvidePostgres(cfg *config.Config) (*gorm.DB, error) {
	return internalrepo.OpenPostgres(cfg.PostgresDSN())
}

// ProvidePortfolioStore creates the holdings and trades store.
func ProvidePortfolioStore(db *gorm.DB) repository.PortfolioStore {
	return internalrepo.NewPortfolioStore(db)
}

// ProvideSettingsStore creates the user settings store.
func ProvideSettingsStore(db *gorm.DB) repository.SettingsStore {
	return internalrepo.NewSettingsStore(db)
}

// ProvideRunStore creates the scheduler run log.
func ProvideRunStore(db *gorm.DB) repository.RunStore {
	return internalrepo.NewRunStore(db)
}

// ProvideClickHouseClient creates the signal database client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the signal store and its schema.
func ProvideSignalStore(client *pkgch.Client) (repository.SignalStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return internalrepo.NewSignalStore(ctx, client)
}

// ProvideRedisCache connects to Redis.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	return cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
}

// ProvideCacheService layers a small in-process cache over Redis.
func ProvideCacheService(r *cache.RedisCache) cache.Service {
	return cache.NewLayeredCache(r)
}

// ProvideRunLock creates the Redis single-flight guard for batch runs.
func ProvideRunLock(c cache.Service) repository.RunLock {
	return internalrepo.NewRunLock(c)
}

// ProvideEventPublisher creates the Kafka publisher, or a no-op when Kafka
// is disabled.
func ProvideEventPublisher(cfg *config.Config) (repository.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalsTopic), nil
}

// ProvideFinnhubClient creates the REST market data client.
func ProvideFinnhubClient(cfg *config.Config) *finnhub.Client {
	return finnhub.NewClient(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, cfg.Finnhub.RatePerMinute)
}

// ProvideQuoteStream creates the WebSocket quote mirror.
func ProvideQuoteStream(cfg *config.Config, c cache.Service, m repository.Metrics, log *logger.Logger) *finnhub.Stream {
	return finnhub.NewStream(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Universe.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		c, m, log,
	)
}

// ProvideQuoteService creates the cache-first quote reader.
func ProvideQuoteService(c cache.Service, rest *finnhub.Client, m repository.Metrics) *usecase.QuoteService {
	return usecase.NewQuoteService(c, rest, m)
}

// ProvideBatchRunner assembles the signal sweep.
func ProvideBatchRunner(cfg *config.Config,
	rest *finnhub.Client,
	signals repository.SignalStore,
	runs repository.RunStore,
	lock repository.RunLock,
	publisher repository.EventPublisher,
	c cache.Service,
	m repository.Metrics,
	log *logger.Logger) *usecase.BatchRunner {
	return usecase.NewBatchRunner(usecase.BatchConfig{
		Symbols:          cfg.Universe.Symbols,
		HistoryDays:      cfg.Scheduler.HistoryDays,
		Workers:          cfg.Scheduler.Workers,
		PerSymbolTimeout: cfg.Scheduler.PerSymbolTimeout,
		PerSymbolRetries: cfg.Scheduler.PerSymbolRetries,
		LockTTL:          cfg.Scheduler.LockTTL,
	}, rest, signals, runs, lock, publisher, c, m, log)
}

// ProvideSignals creates the cache-backed signal read side.
func ProvideSignals(store repository.SignalStore, c cache.Service) *usecase.Signals {
	return usecase.NewSignals(store, c)
}

// ProvidePositionSizer creates the sizing operation.
func ProvidePositionSizer(cfg *config.Config,
	settings repository.SettingsStore,
	rest *finnhub.Client,
	quotes *usecase.QuoteService) *usecase.PositionSizer {
	return usecase.NewPositionSizer(settings, rest, quotes, cfg.Scheduler.HistoryDays)
}

// ProvidePortfolio creates the ledger operations.
func ProvidePortfolio(store repository.PortfolioStore,
	settings repository.SettingsStore,
	quotes *usecase.QuoteService,
	m repository.Metrics,
	log *logger.Logger) *usecase.Portfolio {
	return usecase.NewPortfolio(store, settings, quotes, m, log)
}

// ProvideScheduler creates the wall-clock trigger loop.
func ProvideScheduler(cfg *config.Config, runner *usecase.BatchRunner, log *logger.Logger) (*scheduler.Scheduler, error) {
	primary, err := config.ParseClock(cfg.Scheduler.PrimaryRun)
	if err != nil {
		return nil, err
	}
	backup, err := config.ParseClock(cfg.Scheduler.BackupRun)
	if err != nil {
		return nil, err
	}
	return scheduler.New(runner, cfg.Scheduler.Timezone, []config.Clock{primary, backup}, log)
}

// ProvideHandler creates the HTTP surface.
func ProvideHandler(cfg *config.Config,
	signals *usecase.Signals,
	runner *usecase.BatchRunner,
	sizer *usecase.PositionSizer,
	portfolio *usecase.Portfolio,
	quotes *usecase.QuoteService,
	log *logger.Logger) *api.Handler {
	return api.NewHandler(signals, runner, sizer, portfolio, quotes, cfg.Auth.JWTSecret, log)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(cfg *config.Config,
	handler *api.Handler,
	sched *scheduler.Scheduler,
	stream *finnhub.Stream,
	chClient *pkgch.Client,
	redis *cache.RedisCache,
	publisher repository.EventPublisher,
	log *logger.Logger) *server.App {
	return server.New(cfg, handler, sched, stream, chClient, redis, publisher, log)
}
