// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Upload     UploadConfig
	Session    SessionConfig
	Connector  ConnectorConfig
	Extraction ExtractionConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Admin      AdminConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, extraction runs are synchronous)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required for the postgres backend)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// MigrateOnStart applies the embedded schema at startup (default: true)
	MigrateOnStart bool `env:"DB_MIGRATE_ON_START" default:"true"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	// Backend is postgres or memory (default: postgres)
	Backend string `env:"STORE_BACKEND" default:"postgres"`
}

// UploadConfig holds tabular upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// DefaultDelimiter is used when the form does not supply one (default: ;)
	DefaultDelimiter string `env:"UPLOAD_DEFAULT_DELIMITER" default:";"`
}

// SessionConfig holds import wizard session settings.
type SessionConfig struct {
	// Backend is memory or redis (default: memory)
	Backend string `env:"SESSION_BACKEND" default:"memory"`

	// TTL is how long an idle wizard session survives (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// MaxEntries caps in-memory sessions; least recently used are evicted (default: 1000)
	MaxEntries int `env:"SESSION_MAX_ENTRIES" default:"1000"`

	// SweepInterval is how often expired sessions are purged (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	// RedisURL is the redis:// URL used by the redis backend
	RedisURL string `env:"REDIS_URL"`

	// CookieName names the browser session cookie (default: custodia_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"custodia_session"`

	// CookieSecure sets the Secure attribute on the session cookie (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// ConnectorConfig holds external metadata connector settings.
type ConnectorConfig struct {
	// DriverDir is searched for *.jar files used by the bridge strategy
	DriverDir string `env:"TERADATA_JDBC_DIR" default:"./drivers/teradata"`

	// NativeDriver is the database/sql driver name tried first (default: teradatasql)
	NativeDriver string `env:"CONNECTOR_NATIVE_DRIVER" default:"teradatasql"`

	// BridgeCommand is the executable that speaks JDBC on our behalf (default: jdbc-bridge)
	BridgeCommand string `env:"CONNECTOR_BRIDGE_COMMAND" default:"jdbc-bridge"`

	// Timeout bounds connect plus fetch (default: 2m)
	Timeout time.Duration `env:"CONNECTOR_TIMEOUT" default:"2m"`

	// SimulateOnFailure substitutes sample metadata when no driver works (default: true)
	SimulateOnFailure bool `env:"CONNECTOR_SIMULATE_ON_FAILURE" default:"true"`

	// BreakerFailures is the consecutive native failures that open the breaker (default: 5)
	BreakerFailures int `env:"CONNECTOR_BREAKER_FAILURES" default:"5"`

	// BreakerTimeout is how long the breaker stays open (default: 1m)
	BreakerTimeout time.Duration `env:"CONNECTOR_BREAKER_TIMEOUT" default:"1m"`
}

// ExtractionConfig holds job engine settings.
type ExtractionConfig struct {
	// MaxConcurrent is the maximum number of simultaneous job runs (default: 2)
	MaxConcurrent int `env:"EXTRACTION_MAX_CONCURRENT" default:"2"`

	// MaxWait is how long a run waits for a free slot (default: 30s)
	MaxWait time.Duration `env:"EXTRACTION_MAX_WAIT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is the token bucket size per IP (default: 30)
	Burst int `env:"RATE_LIMIT_BURST" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey lets clients authenticate with X-API-Key instead of a login cookie
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// AdminConfig holds the seeded administrator account.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME" default:"admin"`
	Password string `env:"ADMIN_PASSWORD" default:"admin"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
