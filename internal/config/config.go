// Package config provides centralized configuration management for vcf2csv.
// It loads configuration from environment variables (optionally seeded from a
// .env file) with sensible defaults and validates all settings on startup.
// Command-line flags take precedence over everything loaded here.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Convert  ConvertConfig
	Server   ServerConfig
	Upload   UploadConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ConvertConfig holds conversion defaults.
type ConvertConfig struct {
	// Fields is the default column selection (comma separated)
	Fields []string `env:"VCF2CSV_FIELDS" default:"name,addr1,addr2,city,region,code,country"`

	// SkipCountry is blanked from output when a record's country matches it exactly
	SkipCountry string `env:"VCF2CSV_SKIP_COUNTRY" default:"United States"`
}

// ServerConfig holds HTTP server settings for `vcf2csv serve`.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds limits for conversions submitted over HTTP.
type UploadConfig struct {
	// MaxSize is the maximum accepted request body in bytes (default: 10MB)
	MaxSize int64 `env:"UPLOAD_MAX_SIZE" default:"10485760"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a request waits for a conversion slot (default: 10s)
	MaxWait time.Duration `env:"CONVERT_MAX_WAIT" default:"10s"`
}

// DatabaseConfig holds settings for the optional PostgreSQL contact store.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; the store is disabled when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table receives the flattened records (default: contacts)
	Table string `env:"STORE_TABLE" default:"contacts"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// ConnectTimeout bounds connecting and pinging the database (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// StoreEnabled reports whether a database URL is configured.
func (c *DatabaseConfig) StoreEnabled() bool {
	return c.URL != ""
}
