package apierr

import (
	"context"
	"net/http"
	"sync"
)

type contextKey string

const (
	slotContextKey    contextKey = "failure-slot"
	failureContextKey contextKey = "failure"
)

// Slot holds the first unhandled failure raised while serving a request
type Slot struct {
	mu  sync.Mutex
	err error
}

// Set records err unless a failure is already recorded
func (s *Slot) Set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the recorded failure, if any
func (s *Slot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// WithSlot returns a context carrying slot
func WithSlot(ctx context.Context, slot *Slot) context.Context {
	return context.WithValue(ctx, slotContextKey, slot)
}

// WithFailure attaches the failure being reported to ctx
func WithFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, failureContextKey, err)
}

// FailureFrom returns the failure attached by WithFailure, or nil
func FailureFrom(ctx context.Context) error {
	err, _ := ctx.Value(failureContextKey).(error)
	return err
}

// Raise records err in the request's slot for the error boundary.
// Returns false when the request has no boundary.
func Raise(r *http.Request, err error) bool {
	slot, ok := r.Context().Value(slotContextKey).(*Slot)
	if !ok {
		return false
	}
	slot.Set(err)
	return true
}

// Respond writes mapped errors directly and hands everything else to the
// error boundary. Without a boundary the generic 500 problem is written.
func Respond(w http.ResponseWriter, r *http.Request, err error) {
	if IsHandled(err) || !Raise(r, err) {
		WriteError(w, err)
	}
}
