package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/samber/lo"

	"parking-gate/ticket-kiosk/pkg/infra"
)

type Config struct {
	ServerPort *int

	// Base URL of the ticket store, paths like /tickets are appended to it.
	StoreHost           *string
	StoreTimeoutSeconds *int
	LookupRetryCount    *int

	ClockIntervalMillis *int
	Locale              *string
	MaxArtifactSize     *string

	RedisHost            *string
	RedisDb              *int
	ConfigRefreshSeconds *int
	DefaultPaymentMethod *string
	DefaultGateName      *string
	DumpStoreRequests    *bool
	LatencyWindowSize    *int

	LogEncoding *string
	LogOutput   *string
	Debug       *bool

	maxArtifactBytes int64
}

// NewConfig registers the kiosk flags on fs. Call Parse before reading
// values.
func NewConfig(fs *flag.FlagSet) *Config {
	return &Config{
		ServerPort:           fs.Int("server-port", 3000, "Port of the local kiosk api consumed by the gate screens."),
		StoreHost:            fs.String("store-host", "http://localhost:8080/api", "Base url of the ticket store service."),
		StoreTimeoutSeconds:  fs.Int("store-timeout-seconds", 10, "Timeout of every request to the ticket store."),
		LookupRetryCount:     fs.Int("lookup-retry-count", 2, "Retries for a failed ticket lookup. Check-in and payment are never retried."),
		ClockIntervalMillis:  fs.Int("clock-interval-millis", 1000, "Interval of the clock pushed to the gate screens."),
		Locale:               fs.String("locale", "id", "Locale of dates shown on screens and printed tickets (id or en)."),
		MaxArtifactSize:      fs.String("max-artifact-size", "8MB", "Largest ticket image accepted at the exit gate."),
		RedisHost:            fs.String("redis-host", "localhost:6379", "Redis holding runtime kiosk config. Empty disables it."),
		RedisDb:              fs.Int("redis-db", 0, "Redis db of the runtime kiosk config."),
		ConfigRefreshSeconds: fs.Int("config-refresh-seconds", 30, "Interval to reload runtime kiosk config from redis."),
		DefaultPaymentMethod: fs.String("payment-method", "CASH", "Payment method used until redis overrides it."),
		DefaultGateName:      fs.String("gate-name", "Pintu Masuk", "Gate name shown on screens until redis overrides it."),
		DumpStoreRequests:    fs.Bool("dump-store-requests", false, "Dump every request sent to the ticket store."),
		LatencyWindowSize:    fs.Int("latency-window-size", 100, "Number of recent store requests averaged for the health report."),
		LogEncoding:          fs.String("log-encoding", infra.ConsoleEncoding, "Log encoding, console or json."),
		LogOutput:            fs.String("log-output", "stdout", "Log destination, stdout, stderr or a file path."),
		Debug:                fs.Bool("debug", false, "Start with debug logging. PUT /debug toggles it at run time."),
	}
}

// Parse parses args and checks the values that can be wrong.
func (c *Config) Parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}

	size, err := bytes.Parse(*c.MaxArtifactSize)
	if err != nil {
		return fmt.Errorf("invalid max-artifact-size[%v]: %w", *c.MaxArtifactSize, err)
	}
	if size <= 0 {
		return fmt.Errorf("max-artifact-size must be positive, got[%v]", *c.MaxArtifactSize)
	}
	c.maxArtifactBytes = size

	if *c.ClockIntervalMillis <= 0 {
		return fmt.Errorf("clock-interval-millis must be positive, got[%v]", *c.ClockIntervalMillis)
	}
	if *c.ConfigRefreshSeconds <= 0 {
		return fmt.Errorf("config-refresh-seconds must be positive, got[%v]", *c.ConfigRefreshSeconds)
	}
	if *c.LatencyWindowSize <= 0 {
		return fmt.Errorf("latency-window-size must be positive, got[%v]", *c.LatencyWindowSize)
	}
	if !lo.Contains([]string{infra.ConsoleEncoding, infra.JsonEncoding}, *c.LogEncoding) {
		return fmt.Errorf("log-encoding must be console or json, got[%v]", *c.LogEncoding)
	}
	if *c.LogOutput == "" {
		return fmt.Errorf("log-output must not be empty")
	}
	if *c.LookupRetryCount < 0 {
		return fmt.Errorf("lookup-retry-count must not be negative, got[%v]", *c.LookupRetryCount)
	}
	return nil
}

func (c *Config) MaxArtifactBytes() int64 {
	return c.maxArtifactBytes
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(*c.StoreTimeoutSeconds) * time.Second
}

func (c *Config) ClockInterval() time.Duration {
	return time.Duration(*c.ClockIntervalMillis) * time.Millisecond
}

func (c *Config) ConfigRefreshInterval() time.Duration {
	return time.Duration(*c.ConfigRefreshSeconds) * time.Second
}

func ProvideConfig() (*Config, error) {
	cfg := NewConfig(flag.CommandLine)
	if err := cfg.Parse(flag.CommandLine, os.Args[1:]); err != nil {
		return nil, err
	}
	return cfg, nil
}
