package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mcoot/dormo/internal/api"
	apimiddleware "github.com/mcoot/dormo/internal/api/middleware"
	"github.com/mcoot/dormo/internal/config"
	"github.com/mcoot/dormo/internal/errutil"
	"github.com/mcoot/dormo/internal/factory"
	"github.com/mcoot/dormo/internal/logging"
	"github.com/mcoot/dormo/internal/ratelimit"
	"github.com/mcoot/dormo/internal/services/credentials"
	"github.com/mcoot/dormo/internal/services/session"
	"github.com/mcoot/dormo/internal/storage/postgres"
	redisstorage "github.com/mcoot/dormo/internal/storage/redis"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. Configuration comes from defaults, the
--config file, the .env file, DORMO_ environment variables and flags.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup("dormo", version, cfg.Log.Format, cfg.Log.Level, cmd.OutOrStdout())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Storage.Type == config.StoragePostgres && cfg.Storage.Migrate {
		if err := migrateUp(cfg.Storage.PostgresDSN); err != nil {
			return err
		}
		logger.InfoContext(ctx, "migrations applied")
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := factory.New(ctx, factoryConfig(cfg, logger, reg, secret))
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("storage", cfg.Storage.Type).Wrap(err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			errutil.LogError(context.Background(), logger, "closing application", err)
		}
	}()

	routerCfg := api.RouterConfig{
		Logger:            logger,
		AuthService:       app.AuthService,
		Issuer:            app.Issuer,
		Cookies:           session.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.SecureCookies()},
		Storage:           app.Storage,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		ExposeErrorDetail: cfg.IsDevelopment(),
	}
	if app.Limiter != nil {
		routerCfg.Limiter = app.Limiter
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = apimiddleware.NewHTTPMetrics(reg)
		routerCfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}

	server := api.NewServer(api.NewRouter(routerCfg), api.ServerConfig{
		Host:            cfg.HTTP.Host,
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, logger)

	logger.InfoContext(ctx, "server starting",
		slog.String("environment", cfg.Environment),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("rate_limit", app.Limiter != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		cleanExpiredSessions(gctx, app.Issuer, cfg.Session.CleanupInterval, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// factoryConfig maps server configuration onto the application factory
func factoryConfig(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, secret []byte) factory.Config {
	fc := factory.Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
		Registerer:  reg,
	}

	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		redisCfg.ConnectAttempts = cfg.Storage.ConnectAttempts
		redisCfg.ConnectBackoff = cfg.Storage.ConnectBackoff
		fc.RedisConfig = &redisCfg
	case config.StoragePostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.DSN = cfg.Storage.PostgresDSN
		pgCfg.ConnectAttempts = cfg.Storage.ConnectAttempts
		pgCfg.ConnectBackoff = cfg.Storage.ConnectBackoff
		fc.PostgresConfig = &pgCfg
	}

	fc.Credentials = credentials.DefaultConfig()
	fc.Credentials.HashCost = cfg.Auth.HashCost
	if cfg.Auth.HashConcurrency > 0 {
		fc.Credentials.HashConcurrency = cfg.Auth.HashConcurrency
	}

	fc.Session = session.DefaultConfig()
	fc.Session.Secret = secret
	fc.Session.Lifetime = cfg.Session.Lifetime

	if cfg.RateLimit.Enabled {
		rl := ratelimit.DefaultConfig()
		rl.Window = cfg.RateLimit.Window
		rl.PermitLimit = cfg.RateLimit.PermitLimit
		rl.QueueLimit = cfg.RateLimit.QueueLimit
		fc.RateLimit = &rl
	}

	return fc
}

// sessionSecret returns the configured signing key. In development an
// unset secret is replaced by a random one, so sessions do not survive
// a restart.
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Session.Secret != "" {
		return []byte(cfg.Session.Secret), nil
	}
	if !cfg.IsDevelopment() {
		return nil, oops.Code("CONFIG_INVALID").Errorf("session secret is required outside development")
	}

	secret := make([]byte, session.MinSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, oops.Code("SECRET_GENERATION_FAILED").Wrap(err)
	}
	logger.Warn("no session secret configured, using a random one")
	return secret, nil
}

type sessionCleaner interface {
	CleanExpired(ctx context.Context) (int, error)
}

// cleanExpiredSessions removes expired session records every interval
// until ctx ends. A non-positive interval disables it.
func cleanExpiredSessions(ctx context.Context, cleaner sessionCleaner, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cleaner.CleanExpired(ctx)
			if err != nil {
				errutil.LogError(ctx, logger, "session cleanup failed", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired sessions removed", slog.Int("count", n))
			}
		}
	}
}
