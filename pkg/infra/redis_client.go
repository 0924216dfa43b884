package infra

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient returns nil when host is empty, callers treat a nil
// client as redis being disabled.
func NewRedisClient(host string, db int, loggerFactory *LoggerFactory) *redis.Client {
	logger := loggerFactory.Create("RedisClient").Sugar()
	if host == "" {
		logger.Infof("redis host not set, runtime config disabled")
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr: host,
		DB:   db,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			logger.Infof("redis connected to host[%v] db[%v]", host, db)
			return nil
		},
	})
}
