//go:build wireinject
// +build wireinject

package di

import (
	"TurtleStock/pkg/config"
	"TurtleStock/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgres,
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideEventPublisher,
		ProvideFinnhubClient,
		ProvideQuoteStream,

		// Stores
		ProvidePortfolioStore,
		ProvideSettingsStore,
		ProvideRunStore,
		ProvideSignalStore,
		ProvideRunLock,

		// Use cases
		ProvideQuoteService,
		ProvideBatchRunner,
		ProvideSignals,
		ProvidePositionSizer,
		ProvidePortfolio,
		ProvideScheduler,

		// HTTP surface and app
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
