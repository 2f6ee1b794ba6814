package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/dormo/internal/api/apierr"
)

// Acquirer admits requests, blocking while they are queued
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// RateLimit admits each request through limiter before passing it on.
// Rejections are answered with a 429 problem and a Retry-After header.
func RateLimit(limiter Acquirer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Acquire(r.Context()); err != nil {
				apierr.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
