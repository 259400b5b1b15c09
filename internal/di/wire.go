//go:build wireinject
// +build wireinject

package di

import (
	"CoinSage/pkg/config"
	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config, l *applogger.Logger) (*server.App, error) {
	wire.Build(
		ProvideMetrics,

		// infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,
		ProvideJobQueue,

		// repositories
		ProvideMarketStore,
		ProvideKnowledgeStore,
		ProvideModelRegistry,
		ProvideBinaryStore,
		ProvidePublisher,

		// use cases
		ProvideEngine,
		ProvideKnowledgeUpdater,
		ProvideScheduler,
		ProvidePriceCollector,
		ProvideNewsCollector,

		// HTTP
		ProvideDashboardHandler,

		// application
		ProvideApp,
	)
	return &server.App{}, nil
}
