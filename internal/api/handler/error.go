package handler

import (
	"net/http"

	"github.com/mcoot/dormo/internal/api/apierr"
)

// ErrorHandler renders the failure attached to the request as a problem.
// It serves GET /error and is re-executed by the error boundary.
type ErrorHandler struct {
	exposeDetail bool
}

// NewErrorHandler creates an error handler. When exposeDetail is false the
// problem detail is always the generic message.
func NewErrorHandler(exposeDetail bool) *ErrorHandler {
	return &ErrorHandler{exposeDetail: exposeDetail}
}

// ServeHTTP implements http.Handler
func (h *ErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	problem := apierr.NewProblem(http.StatusInternalServerError, apierr.CodeInternalError, apierr.GenericDetail)

	if err := apierr.FailureFrom(r.Context()); err != nil && h.exposeDetail {
		problem.Detail = err.Error()
	}

	apierr.WriteProblem(w, problem)
}
