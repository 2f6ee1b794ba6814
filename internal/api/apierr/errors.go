package apierr

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/mcoot/dormo/internal/api/response"
	"github.com/mcoot/dormo/internal/ratelimit"
	"github.com/mcoot/dormo/internal/services/auth"
	"github.com/mcoot/dormo/internal/services/credentials"
)

// Common error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternalError  = "INTERNAL_ERROR"
)

// GenericDetail is the problem detail used when error detail is hidden
const GenericDetail = "An unexpected error occurred."

// InvalidLoginMessage is returned for every failed login
const InvalidLoginMessage = "Invalid login attempt"

// httpError combines an HTTP status code with a problem code and detail
type httpError struct {
	status int
	code   string
	detail string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.detail
}

// IsHandled reports whether err has a client-facing mapping. Errors that
// are not handled belong to the error boundary.
func IsHandled(err error) bool {
	var he *httpError
	var ve *credentials.ValidationError
	switch {
	case errors.As(err, &he), errors.As(err, &ve):
		return true
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, ratelimit.ErrRateLimited),
		errors.Is(err, ratelimit.ErrLimiterClosed):
		return true
	default:
		return false
	}
}

// WriteError writes the response for err. Unhandled errors produce a
// generic 500 problem.
func WriteError(w http.ResponseWriter, err error) {
	var ve *credentials.ValidationError
	if errors.As(err, &ve) {
		response.JSON(w, http.StatusBadRequest, ve.Reasons)
		return
	}

	if errors.Is(err, auth.ErrInvalidCredentials) {
		response.JSON(w, http.StatusUnauthorized, response.Message{Message: InvalidLoginMessage})
		return
	}

	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		w.Header().Set("Retry-After", retryAfterSeconds(rejected))
		WriteProblem(w, NewProblem(http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later."))
		return
	}

	WriteProblem(w, toProblem(err))
}

// toProblem converts an error to a problem document
func toProblem(err error) Problem {
	var he *httpError
	if errors.As(err, &he) {
		return NewProblem(he.status, he.code, he.detail)
	}

	switch {
	case errors.Is(err, ratelimit.ErrRateLimited):
		return NewProblem(http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later.")
	case errors.Is(err, ratelimit.ErrLimiterClosed):
		return NewProblem(http.StatusServiceUnavailable, CodeUnavailable, "The server is shutting down.")
	default:
		return NewProblem(http.StatusInternalServerError, CodeInternalError, GenericDetail)
	}
}

// retryAfterSeconds renders the rejection's hint as whole seconds, at least one
func retryAfterSeconds(rejected *ratelimit.RejectedError) string {
	secs := int(math.Ceil(rejected.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, CodeInvalidRequest, message}
}
