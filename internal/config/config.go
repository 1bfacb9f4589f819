// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment names accepted in GAME_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultMetricsAddr is used when GAME_METRICS_ADDR is not set at all.
const DefaultMetricsAddr = ":8000"

// Config holds the game service configuration.
type Config struct {
	// Addr is the main web listener address.
	Addr string `env:"ADDR" envDefault:":5000"`

	// MetricsAddr is the dedicated exposition listener. Set GAME_METRICS_ADDR
	// to an empty value to disable it; unset means DefaultMetricsAddr.
	MetricsAddr string `env:"METRICS_ADDR"`

	// Env selects development or production behaviour.
	Env string `env:"ENV" envDefault:"production"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`

	// Stats mirror
	RedisURL       string        `env:"REDIS_URL"`
	MirrorInterval time.Duration `env:"MIRROR_INTERVAL" envDefault:"15s"`
	MirrorKey      string        `env:"MIRROR_KEY" envDefault:"game2048:counters"`

	// OTelEndpoint is the OTLP/HTTP trace endpoint. Empty disables tracing.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// RuntimeMetrics adds Go runtime and process collectors to /metrics.
	RuntimeMetrics bool `env:"RUNTIME_METRICS" envDefault:"false"`
}

// Load reads an optional .env file, then parses GAME_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "GAME_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, ok := os.LookupEnv("GAME_METRICS_ADDR"); !ok {
		cfg.MetricsAddr = DefaultMetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("GAME_ADDR is required")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.Addr {
		return fmt.Errorf("GAME_METRICS_ADDR must differ from GAME_ADDR (got %q)", c.Addr)
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("GAME_ENV must be %q or %q (got %q)", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("GAME_SHUTDOWN_TIMEOUT must be positive (got %s)", c.ShutdownTimeout)
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("GAME_READ_HEADER_TIMEOUT must be positive (got %s)", c.ReadHeaderTimeout)
	}
	if c.RedisURL != "" {
		if c.MirrorInterval <= 0 {
			return fmt.Errorf("GAME_MIRROR_INTERVAL must be positive (got %s)", c.MirrorInterval)
		}
		if c.MirrorKey == "" {
			return fmt.Errorf("GAME_MIRROR_KEY is required when GAME_REDIS_URL is set")
		}
	}
	return nil
}

// Development reports whether programmer errors should fail loudly.
func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}
