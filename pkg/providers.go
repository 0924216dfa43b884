package main

import (
	"github.com/go-redis/redis/v8"
	"github.com/imroc/req/v3"

	"parking-gate/ticket-kiosk/pkg/clock"
	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/present"
	"parking-gate/ticket-kiosk/pkg/store"
)

func ProvideLoggerFactory(cfg *config.Config) (*infra.LoggerFactory, error) {
	logger, err := infra.NewLogger(infra.LoggerOptions{
		Encoding:   *cfg.LogEncoding,
		OutputPath: *cfg.LogOutput,
		Debug:      *cfg.Debug,
	})
	if err != nil {
		return nil, err
	}
	return infra.NewLoggerFactory(logger), nil
}

func ProvideHttpClient(cfg *config.Config) *req.Client {
	return infra.NewHttpClient(cfg.StoreTimeout(), *cfg.DumpStoreRequests)
}

func ProvideRedisClient(cfg *config.Config, loggerFactory *infra.LoggerFactory) *redis.Client {
	return infra.NewRedisClient(*cfg.RedisHost, *cfg.RedisDb, loggerFactory)
}

func ProvideStoreClient(cfg *config.Config, httpClient *req.Client, loggerFactory *infra.LoggerFactory) *store.Client {
	return store.NewClient(*cfg.StoreHost, *cfg.LookupRetryCount, httpClient, loggerFactory)
}

func ProvideLocale(cfg *config.Config) (present.Locale, error) {
	return present.ParseLocale(*cfg.Locale)
}

func ProvideClock(cfg *config.Config, locale present.Locale, loggerFactory *infra.LoggerFactory) *clock.Clock {
	return clock.NewClock(cfg.ClockInterval(), locale, loggerFactory)
}
