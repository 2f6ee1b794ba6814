package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrLimiterClosed = errors.New("rate limiter closed")
)

// RejectedError is returned when a request is not admitted. It matches
// ErrRateLimited with errors.Is.
type RejectedError struct {
	Policy string
	// RetryAfter is how long until the oldest admission leaves the window
	RetryAfter time.Duration
	// Cause is set when a queued waiter gave up, e.g. its context ended
	Cause error
}

func (e *RejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: policy %s: %v", ErrRateLimited, e.Policy, e.Cause)
	}
	return fmt.Sprintf("%s: policy %s", ErrRateLimited, e.Policy)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRateLimited
}

func (e *RejectedError) Unwrap() error {
	return e.Cause
}
