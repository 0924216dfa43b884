//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"parking-gate/ticket-kiosk/pkg/checkin"
	"parking-gate/ticket-kiosk/pkg/checkout"
	"parking-gate/ticket-kiosk/pkg/client"
	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/stats"
	"parking-gate/ticket-kiosk/pkg/store"
)

func Setup() (*Server, error) {
	wire.Build(
		wire.NewSet(
			ProvideServer,
			ProvideApplication,
			config.ProvideConfig,
			config.ProvideKioskConfig,
			ProvideLoggerFactory,
			ProvideHttpClient,
			ProvideRedisClient,
			ProvideStoreClient,
			ProvideLocale,
			ProvideClock,
			client.ProvideHub,
			stats.ProvideStats,
			stats.ProvideObservedStore,
			checkin.ProvideWorkflow,
			checkout.ProvideSession,
		),
		wire.Bind(new(stats.Store), new(*store.Client)),
		wire.Bind(new(checkin.Creator), new(*stats.ObservedStore)),
		wire.Bind(new(checkout.Store), new(*stats.ObservedStore)),
		wire.Bind(new(checkout.MethodSource), new(*config.KioskConfig)),
	)
	return nil, nil
}
