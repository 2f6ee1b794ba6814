package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/dormo/internal/middleware"
)

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Timeout puts a deadline of timeout on each API request's context
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return middleware.Timeout(timeout)
}

// HTTPMetrics records API request counts and latencies
type HTTPMetrics = middleware.HTTPMetrics

// NewHTTPMetrics registers API request metrics with reg
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	return middleware.NewHTTPMetrics(reg)
}

// Instrument records every API request in m. A nil m disables it.
func Instrument(m *HTTPMetrics) func(http.Handler) http.Handler {
	return middleware.Instrument(m)
}
