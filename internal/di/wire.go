//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domrepo "arbwatch/internal/domain/repository"
	"arbwatch/internal/service/pricestate"
	"arbwatch/pkg/config"
	"arbwatch/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Shared state and transport
		ProvidePriceState,
		wire.Bind(new(domrepo.PriceWriter), new(*pricestate.Store)),
		wire.Bind(new(domrepo.PriceReader), new(*pricestate.Store)),
		ProvideDialer,
		ProvideFeedSupervisors,

		// Sinks
		ProvideStatusBoard,
		ProvideClickHouseClient,
		ProvideSinks,
		ProvidePipeline,

		// Use cases
		ProvideMonitor,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
