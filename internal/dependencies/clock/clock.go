// Package clock abstracts the wall clock and its timers
package clock

import "time"

// Clock tells the time and schedules callbacks
type Clock interface {
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback
type Timer interface {
	// Stop cancels the callback, reporting whether it was still pending
	Stop() bool
}

// RealClock is the system clock
type RealClock struct{}

// New creates a RealClock
func New() *RealClock {
	return &RealClock{}
}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
