// Package ratelimit implements a sliding-window admission limiter with a
// bounded FIFO queue
package ratelimit

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/dormo/internal/dependencies/clock"
)

// PerUserPolicy is the name of the global request policy
const PerUserPolicy = "PerUserPolicy"

// Config configures a named limiter policy
type Config struct {
	Policy string

	// Window is the length of the sliding window
	Window time.Duration

	// PermitLimit is the number of admissions allowed within any window
	PermitLimit int

	// QueueLimit is the number of requests that may wait for a permit.
	// Zero rejects immediately once permits are exhausted.
	QueueLimit int
}

// DefaultConfig returns the default global policy
func DefaultConfig() Config {
	return Config{
		Policy:      PerUserPolicy,
		Window:      time.Minute,
		PermitLimit: 100,
		QueueLimit:  10,
	}
}

// Validate checks that the configuration can admit requests
func (c Config) Validate() error {
	if c.Window <= 0 {
		return errors.New("ratelimit: window must be positive")
	}
	if c.PermitLimit < 1 {
		return errors.New("ratelimit: permit limit must be at least 1")
	}
	if c.QueueLimit < 0 {
		return errors.New("ratelimit: queue limit must not be negative")
	}
	return nil
}

// Stats is a point-in-time view of a limiter
type Stats struct {
	Policy    string
	Available int
	Queued    int
}

type waiter struct {
	ready chan error
	elem  *list.Element
}

// Limiter admits at most PermitLimit requests in any Window. Requests over
// the limit wait in arrival order, up to QueueLimit of them, and are admitted
// as earlier admissions slide out of the window. It is safe for concurrent use.
//
// Call Close to stop the drain timer and release waiting requests.
type Limiter struct {
	cfg     Config
	clock   clock.Clock
	metrics *Metrics

	mu       sync.Mutex
	admitted []time.Time // admission times still inside the window, oldest first
	queue    *list.List
	timer    clock.Timer
	closed   bool
}

// New creates a Limiter. metrics may be nil.
func New(cfg Config, clock clock.Clock, metrics *Metrics) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		queue:   list.New(),
	}, nil
}

// Policy returns the limiter's policy name
func (l *Limiter) Policy() string {
	return l.cfg.Policy
}

// Acquire admits the caller or waits for a permit.
// Returns a *RejectedError (matching ErrRateLimited) when the queue is full
// or ctx ends while waiting, and ErrLimiterClosed after Close.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLimiterClosed
	}

	now := l.clock.Now()
	l.evict(now)

	if l.queue.Len() == 0 && len(l.admitted) < l.cfg.PermitLimit {
		l.admitted = append(l.admitted, now)
		l.mu.Unlock()
		l.metrics.record(l.cfg.Policy, OutcomeAdmitted)
		return nil
	}

	if l.queue.Len() >= l.cfg.QueueLimit {
		retryAfter := l.retryAfter(now)
		l.mu.Unlock()
		l.metrics.record(l.cfg.Policy, OutcomeRejected)
		return &RejectedError{Policy: l.cfg.Policy, RetryAfter: retryAfter}
	}

	w := &waiter{ready: make(chan error, 1)}
	w.elem = l.queue.PushBack(w)
	depth := l.queue.Len()
	l.schedule(now)
	l.mu.Unlock()

	l.metrics.record(l.cfg.Policy, OutcomeQueued)
	l.metrics.setQueueDepth(l.cfg.Policy, depth)

	select {
	case err := <-w.ready:
		return err
	case <-ctx.Done():
	}

	l.mu.Lock()
	if w.elem == nil {
		// Granted or failed between ctx ending and taking the lock
		l.mu.Unlock()
		return <-w.ready
	}
	l.queue.Remove(w.elem)
	w.elem = nil
	depth = l.queue.Len()
	retryAfter := l.retryAfter(l.clock.Now())
	l.mu.Unlock()

	l.metrics.record(l.cfg.Policy, OutcomeRejected)
	l.metrics.setQueueDepth(l.cfg.Policy, depth)
	return &RejectedError{Policy: l.cfg.Policy, RetryAfter: retryAfter, Cause: ctx.Err()}
}

// Stats returns the current permits available and queue length
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.clock.Now())
	return Stats{
		Policy:    l.cfg.Policy,
		Available: l.cfg.PermitLimit - len(l.admitted),
		Queued:    l.queue.Len(),
	}
}

// Close stops the limiter. Queued requests fail with ErrLimiterClosed.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	for e := l.queue.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		w.elem = nil
		w.ready <- ErrLimiterClosed
	}
	l.queue.Init()
	l.metrics.setQueueDepth(l.cfg.Policy, 0)
}

// drain runs on the timer: it admits queued requests, oldest first, into
// the permits freed by the window sliding forward
func (l *Limiter) drain() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.timer = nil
	if l.closed {
		return
	}

	now := l.clock.Now()
	l.evict(now)

	for l.queue.Len() > 0 && len(l.admitted) < l.cfg.PermitLimit {
		w := l.queue.Remove(l.queue.Front()).(*waiter)
		w.elem = nil
		l.admitted = append(l.admitted, now)
		w.ready <- nil
		l.metrics.record(l.cfg.Policy, OutcomeAdmitted)
	}
	l.metrics.setQueueDepth(l.cfg.Policy, l.queue.Len())

	l.schedule(now)
}

// schedule arms the drain timer for when the oldest admission leaves the
// window. Must hold l.mu.
func (l *Limiter) schedule(now time.Time) {
	if l.timer != nil || l.queue.Len() == 0 {
		return
	}
	l.timer = l.clock.AfterFunc(l.retryAfter(now), l.drain)
}

// retryAfter is the time until the next permit frees up. Must hold l.mu.
func (l *Limiter) retryAfter(now time.Time) time.Duration {
	if len(l.admitted) == 0 {
		return 0
	}
	wait := l.admitted[0].Add(l.cfg.Window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// evict drops admissions that have left the window. Must hold l.mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.admitted) && !l.admitted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[i:]...)
	}
}
