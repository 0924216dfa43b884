package config

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"parking-gate/ticket-kiosk/pkg/infra"
	"parking-gate/ticket-kiosk/pkg/ticket"
)

const (
	// KioskConfig redis key.
	cfgRedisKey = "kiosk:config"
)

// Values operators may change while the kiosk is running. Empty fields
// in redis fall back to the flag defaults.
type kioskValues struct {
	// Payment method sent with every payment. Only one method is offered
	// at a time, switching it does not need a redeploy.
	PaymentMethod string `redis:"paymentMethod"`

	// Name of the gate shown on the screens.
	GateName string `redis:"gateName"`
}

type KioskConfig struct {
	// Notify hub that values changed. Holds at most one pending
	// notification, readers fetch the latest values themselves.
	NotifyChange chan struct{}

	values     kioskValues
	valuesLock sync.RWMutex

	defaults        kioskValues
	refreshInterval time.Duration

	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func ProvideKioskConfig(cfg *Config, redisClient *redis.Client, loggerFactory *infra.LoggerFactory) *KioskConfig {
	defaults := kioskValues{
		PaymentMethod: normalizeMethod(*cfg.DefaultPaymentMethod),
		GateName:      *cfg.DefaultGateName,
	}
	if defaults.PaymentMethod == "" {
		defaults.PaymentMethod = string(ticket.Cash)
	}

	return &KioskConfig{
		NotifyChange:    make(chan struct{}, 1),
		values:          defaults,
		defaults:        defaults,
		refreshInterval: cfg.ConfigRefreshInterval(),
		redisClient:     redisClient,
		logger:          loggerFactory.Create("KioskConfig").Sugar(),
	}
}

func normalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}

func (c *KioskConfig) PaymentMethod() ticket.PaymentMethod {
	c.valuesLock.RLock()
	defer c.valuesLock.RUnlock()
	return ticket.PaymentMethod(c.values.PaymentMethod)
}

func (c *KioskConfig) GateName() string {
	c.valuesLock.RLock()
	defer c.valuesLock.RUnlock()
	return c.values.GateName
}

// Refresh reads the redis hash once.
func (c *KioskConfig) Refresh(ctx context.Context) error {
	if c.redisClient == nil {
		return nil
	}

	loaded := kioskValues{}
	if err := c.redisClient.HGetAll(ctx, cfgRedisKey).Scan(&loaded); err != nil {
		return err
	}

	next := c.defaults
	if method := normalizeMethod(loaded.PaymentMethod); method != "" {
		next.PaymentMethod = method
	}
	if loaded.GateName != "" {
		next.GateName = loaded.GateName
	}

	c.valuesLock.Lock()
	changed := next != c.values
	c.values = next
	c.valuesLock.Unlock()

	if changed {
		c.logger.Infof("updated config[%+v]", next)
		select {
		case c.NotifyChange <- struct{}{}:
		default:
		}
	}
	return nil
}

func (c *KioskConfig) Run(ctx context.Context) error {
	if c.redisClient == nil {
		c.logger.Infof("redis disabled, keeping config[%+v]", c.defaults)
		return nil
	}

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		c.logger.Debugf("updating config")
		if err := c.Refresh(ctx); err != nil {
			c.logger.Errorf("err reading config from redis %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
