package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/dormo/internal/api/handler"
	"github.com/mcoot/dormo/internal/api/middleware"
	"github.com/mcoot/dormo/internal/services/auth"
	"github.com/mcoot/dormo/internal/services/session"
)

// SupportedVersions is reported on every response
const SupportedVersions = "1.0"

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Issuer      session.Issuer
	Cookies     session.CookieConfig
	// Storage is pinged by the health endpoint
	Storage handler.Pinger
	// Limiter admits requests; nil disables rate limiting
	Limiter middleware.Acquirer
	// RequestTimeout bounds each request's context, including any wait for
	// a rate limit permit; zero disables it
	RequestTimeout time.Duration
	// ExposeErrorDetail puts the failure message in 500 problem details
	ExposeErrorDetail bool
	// MetricsHandler is served at /metrics when set
	MetricsHandler http.Handler
	// Metrics records request counts and latencies when set
	Metrics *middleware.HTTPMetrics
}

// NewRouter creates a new API router with all routes configured.
// Middleware wraps the whole router so unmatched routes get the same
// treatment as matched ones.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Cookies)
	errorHandler := handler.NewErrorHandler(cfg.ExposeErrorDetail)
	healthHandler := handler.NewHealthHandler(cfg.Storage)
	principal := middleware.NewPrincipal(cfg.Issuer, cfg.Cookies.Name, cfg.Logger)

	api := r.PathPrefix("/api/v1.0").Subrouter()

	// Auth routes; the principal is resolved per request and handed to the handler
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Handle("/register", principal.Handle(authHandler.Register)).Methods(http.MethodPost)
	authRoutes.Handle("/login", principal.Handle(authHandler.Login)).Methods(http.MethodPost)
	authRoutes.Handle("/logout", principal.Handle(authHandler.Logout)).Methods(http.MethodPost)
	authRoutes.Handle("/status", principal.Handle(authHandler.Status)).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.Handle("/health", healthHandler).Methods(http.MethodGet)

	r.Handle(middleware.ErrorPath, errorHandler).Methods(http.MethodGet)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler).Methods(http.MethodGet)
	}

	// Innermost first
	var h http.Handler = r
	h = middleware.Version(SupportedVersions)(h)
	h = middleware.Logging(cfg.Logger)(h)
	if cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter)(h)
	}
	// The request deadline also bounds time spent queued for a permit
	h = middleware.Timeout(cfg.RequestTimeout)(h)
	h = middleware.Boundary(cfg.Logger, errorHandler)(h)
	h = middleware.Instrument(cfg.Metrics)(h)

	return h
}
