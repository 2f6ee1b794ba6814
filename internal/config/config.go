// Package config loads server configuration from defaults, an optional YAML
// file, a .env file, DORMO_ environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// MinSessionSecretLength is the shortest signing key accepted outside development
const MinSessionSecretLength = 32

// Config is the complete server configuration
type Config struct {
	Environment string          `koanf:"environment"`
	Log         LogConfig       `koanf:"log"`
	HTTP        HTTPConfig      `koanf:"http"`
	Storage     StorageConfig   `koanf:"storage"`
	Session     SessionConfig   `koanf:"session"`
	Auth        AuthConfig      `koanf:"auth"`
	RateLimit   RateLimitConfig `koanf:"ratelimit"`
	Metrics     MetricsConfig   `koanf:"metrics"`
}

// LogConfig controls the application logger
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// HTTPConfig controls the HTTP server
type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type        string `koanf:"type"`
	RedisURL    string `koanf:"redis_url"`
	PostgresDSN string `koanf:"postgres_dsn"`
	// Migrate applies Postgres migrations at startup
	Migrate         bool          `koanf:"migrate"`
	ConnectAttempts uint64        `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff"`
}

// SessionConfig controls session tokens and the session cookie
type SessionConfig struct {
	Secret     string        `koanf:"secret"`
	Lifetime   time.Duration `koanf:"lifetime"`
	CookieName string        `koanf:"cookie_name"`
	// CookieSecure defaults to true outside development when unset
	CookieSecure    *bool         `koanf:"cookie_secure"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// AuthConfig controls password hashing
type AuthConfig struct {
	HashCost int `koanf:"hash_cost"`
	// HashConcurrency bounds concurrent hash operations; 0 means GOMAXPROCS
	HashConcurrency int `koanf:"hash_concurrency"`
}

// RateLimitConfig controls the global request limiter
type RateLimitConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Window      time.Duration `koanf:"window"`
	PermitLimit int           `koanf:"permit_limit"`
	QueueLimit  int           `koanf:"queue_limit"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Environment: EnvProduction,
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Storage: StorageConfig{
			Type:            StorageMemory,
			ConnectAttempts: 5,
			ConnectBackoff:  200 * time.Millisecond,
		},
		Session: SessionConfig{
			Lifetime:        time.Hour,
			CookieName:      ".Dormo.Session",
			CleanupInterval: 5 * time.Minute,
		},
		Auth: AuthConfig{
			HashCost: bcrypt.DefaultCost,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			Window:      time.Minute,
			PermitLimit: 100,
			QueueLimit:  10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// IsDevelopment reports whether the server runs in the development environment
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// SecureCookies reports whether the session cookie gets the Secure attribute
func (c *Config) SecureCookies() bool {
	if c.Session.CookieSecure != nil {
		return *c.Session.CookieSecure
	}
	return !c.IsDevelopment()
}

// MaxQueueWait is the longest a request can wait for a rate limit permit:
// the request timeout when one is set, otherwise a full window
func (c *Config) MaxQueueWait() time.Duration {
	if c.RateLimit.QueueLimit == 0 {
		return 0
	}
	if c.HTTP.RequestTimeout > 0 && c.HTTP.RequestTimeout < c.RateLimit.Window {
		return c.HTTP.RequestTimeout
	}
	return c.RateLimit.Window
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Environment == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis storage"))
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type %q must be memory, redis or postgres", c.Storage.Type))
	}

	switch {
	case c.Session.Secret == "" && !c.IsDevelopment():
		errs = append(errs, errors.New("session.secret is required outside development"))
	case c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLength:
		errs = append(errs, fmt.Errorf("session.secret must be at least %d bytes", MinSessionSecretLength))
	}
	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("session.lifetime must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("session.cookie_name is required"))
	}

	if c.Auth.HashCost < bcrypt.MinCost || c.Auth.HashCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.hash_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Auth.HashConcurrency < 0 {
		errs = append(errs, errors.New("auth.hash_concurrency must not be negative"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("ratelimit.window must be positive"))
		}
		if c.RateLimit.PermitLimit <= 0 {
			errs = append(errs, errors.New("ratelimit.permit_limit must be positive"))
		}
		if c.RateLimit.QueueLimit < 0 {
			errs = append(errs, errors.New("ratelimit.queue_limit must not be negative"))
		}
		if wait := c.MaxQueueWait(); c.HTTP.WriteTimeout > 0 && wait >= c.HTTP.WriteTimeout {
			errs = append(errs, fmt.Errorf("queued requests may wait %s, which must be shorter than http.write_timeout %s; lower http.request_timeout", wait, c.HTTP.WriteTimeout))
		}
	}

	return errors.Join(errs...)
}
