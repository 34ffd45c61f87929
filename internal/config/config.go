// Package config provides centralized configuration management for the
// importer. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings for the job/catalog query API.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// FeedConfig holds supplier feed API settings.
type FeedConfig struct {
	// URL is the feed export endpoint (required)
	URL string `env:"FEED_URL" required:"true"`

	// APIKey authenticates the export request (required)
	APIKey string `env:"FEED_API_KEY" required:"true"`

	// APISecret authenticates the export request (required)
	APISecret string `env:"FEED_API_SECRET" required:"true"`

	// Timeout is the deadline for the full-dump request, the only point in
	// the pipeline with an explicit cancellation path (default: 60s)
	Timeout time.Duration `env:"FEED_TIMEOUT" default:"60s"`
}

// ImportConfig holds pipeline processing settings.
type ImportConfig struct {
	// Types is the comma-separated list of stone types to import (default: natural,lab)
	Types []string `env:"IMPORT_TYPES" default:"natural,lab"`

	// BatchSize is the number of entries per upsert batch (default: 500)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"500"`

	// SourceCurrency is the currency the feed prices in (default: USD)
	SourceCurrency string `env:"IMPORT_SOURCE_CURRENCY" default:"USD"`

	// TargetCurrency is the single output currency per run (default: SEK)
	TargetCurrency string `env:"IMPORT_TARGET_CURRENCY" default:"SEK"`

	// RoundingUnit is the display granularity of final prices, in minor
	// currency units (default: 100)
	RoundingUnit int64 `env:"IMPORT_ROUNDING_UNIT" default:"100"`

	// SyncInterval is how often the scheduler starts a run per type when
	// running in serve mode (default: 12h)
	SyncInterval time.Duration `env:"IMPORT_SYNC_INTERVAL" default:"12h"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
