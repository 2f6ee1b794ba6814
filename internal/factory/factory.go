package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/dormo/internal/dependencies/clock"
	"github.com/mcoot/dormo/internal/dependencies/ids"
	"github.com/mcoot/dormo/internal/ratelimit"
	"github.com/mcoot/dormo/internal/services/auth"
	"github.com/mcoot/dormo/internal/services/credentials"
	"github.com/mcoot/dormo/internal/services/session"
	"github.com/mcoot/dormo/internal/storage"
	"github.com/mcoot/dormo/internal/storage/memory"
	"github.com/mcoot/dormo/internal/storage/postgres"
	redisstorage "github.com/mcoot/dormo/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock
	IDs   ids.Generator

	// Services
	Credentials *credentials.Service
	Issuer      *session.JWTIssuer
	AuthService *auth.Service

	// Limiter is nil when rate limiting is disabled
	Limiter *ratelimit.Limiter
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// Credentials configures password policy and hashing
	// If zero value, defaults to credentials.DefaultConfig()
	Credentials credentials.Config
	// Session configures session tokens. Secret is required.
	Session session.Config
	// RateLimit configures the global limiter; nil disables it
	RateLimit *ratelimit.Config
	// Registerer receives limiter metrics (optional)
	Registerer prometheus.Registerer
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(ctx, *cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.New(ctx, *cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store = pgStore
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}

	app, err := newWithDependencies(store, clock.New(), ids.New(), cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, idGen ids.Generator, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	credCfg := cfg.Credentials
	if credCfg.HashCost == 0 {
		credCfg = credentials.DefaultConfig()
	}
	hasher := credentials.NewBcryptHasher(credCfg.HashCost, credCfg.HashConcurrency)
	credService := credentials.New(store, hasher, clk, idGen, credCfg)

	issuer, err := session.NewJWTIssuer(store, clk, idGen, cfg.Session)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit != nil {
		var metrics *ratelimit.Metrics
		if cfg.Registerer != nil {
			metrics = ratelimit.NewMetrics(cfg.Registerer)
		}
		limiter, err = ratelimit.New(*cfg.RateLimit, clk, metrics)
		if err != nil {
			return nil, err
		}
	}

	return &App{
		Storage:     store,
		Clock:       clk,
		IDs:         idGen,
		Credentials: credService,
		Issuer:      issuer,
		AuthService: auth.New(credService, issuer, logger),
		Limiter:     limiter,
	}, nil
}

// Close stops the limiter and releases storage connections
func (a *App) Close() error {
	if a.Limiter != nil {
		a.Limiter.Close()
	}
	return a.Storage.Close()
}
