package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/dormo/internal/api/apierr"
	"github.com/mcoot/dormo/internal/errutil"
	"github.com/mcoot/dormo/internal/middleware"
)

// ErrorPath is where the error handler is mounted
const ErrorPath = "/error"

// Boundary is the outermost API middleware. Panics and errors raised with
// apierr.Respond are answered by re-executing errorHandler with the failure
// attached to the request context. At most one response is emitted: when
// the handler has already started writing, the failure is only logged.
func Boundary(logger *slog.Logger, errorHandler http.Handler) func(http.Handler) http.Handler {
	raise := func(w http.ResponseWriter, r *http.Request, err error) {
		if !apierr.Raise(r, err) {
			apierr.WriteError(w, err)
		}
	}
	fallback := func(w http.ResponseWriter, _ *http.Request, err error) {
		if rw := middleware.Wrap(w); !rw.Written() {
			apierr.WriteError(rw, err)
		}
	}
	errorHandler = middleware.Recovery(logger, fallback)(errorHandler)

	return func(next http.Handler) http.Handler {
		recovered := middleware.Recovery(logger, raise)(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := middleware.Wrap(w)
			slot := &apierr.Slot{}
			r = r.WithContext(apierr.WithSlot(r.Context(), slot))

			recovered.ServeHTTP(rw, r)

			err := slot.Err()
			if err == nil {
				return
			}

			attrs := []any{"method", r.Method, "path", r.URL.Path}
			if rw.Written() {
				errutil.LogError(r.Context(), logger, "unhandled error after response started", err, attrs...)
				return
			}
			errutil.LogError(r.Context(), logger, "unhandled error", err, attrs...)

			errReq := r.Clone(apierr.WithFailure(r.Context(), err))
			errReq.Method = http.MethodGet
			errReq.URL.Path = ErrorPath
			errorHandler.ServeHTTP(rw, errReq)
		})
	}
}
