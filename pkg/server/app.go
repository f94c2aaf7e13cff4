package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TurtleStock/internal/domain/repository"
	"TurtleStock/internal/handler/api"
	"TurtleStock/internal/scheduler"
	"TurtleStock/internal/service/finnhub"
	"TurtleStock/pkg/cache"
	pkgch "TurtleStock/pkg/clickhouse"
	"TurtleStock/pkg/config"
	xhttp "TurtleStock/pkg/http"
	applogger "TurtleStock/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP surface, the batch
// scheduler and the live quote stream, plus the infrastructure clients they
// share.
type App struct {
	cfg        *config.Config
	handler    *api.Handler
	scheduler  *scheduler.Scheduler
	stream     *finnhub.Stream
	chClient   *pkgch.Client
	redis      *cache.RedisCache
	publisher  repository.EventPublisher
	log        *applogger.Logger
	httpServer *xhttp.Server
}

// New creates an App instance with all dependencies.
func New(cfg *config.Config,
	handler *api.Handler,
	sched *scheduler.Scheduler,
	stream *finnhub.Stream,
	chClient *pkgch.Client,
	redis *cache.RedisCache,
	publisher repository.EventPublisher,
	log *applogger.Logger) *App {
	return &App{
		cfg:       cfg,
		handler:   handler,
		scheduler: sched,
		stream:    stream,
		chClient:  chClient,
		redis:     redis,
		publisher: publisher,
		log:       log,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go a.scheduler.Run(ctx)
	a.log.Info("scheduler started",
		applogger.String("timezone", a.cfg.Scheduler.Timezone),
		applogger.String("primary", a.cfg.Scheduler.PrimaryRun),
		applogger.String("backup", a.cfg.Scheduler.BackupRun))

	go a.stream.Run(ctx)
	a.log.Info("quote stream started",
		applogger.Strings("symbols", a.cfg.Universe.Symbols))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services and closes the clients.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close error", applogger.Error(err))
	}
	if err := a.chClient.Close(); err != nil {
		a.log.Warn("clickhouse close error", applogger.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("redis close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
