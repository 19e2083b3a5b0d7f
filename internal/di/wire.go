//go:build wireinject
// +build wireinject

package di

import (
	"LiqPulse/pkg/config"
	"LiqPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Core
		ProvideEngine,

		// Ingestion
		ProvideBarStream,
		ProvideLiquidationSource,
		ProvideBarCollector,
		ProvideLiquidationPoller,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Outbound
		ProvideHub,
		ProvideDispatcher,

		// HTTP
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
