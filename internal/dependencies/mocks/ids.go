package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/dormo/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing.
// Queued IDs are returned first, then sequential ones with the given prefix.
type MockIDs struct {
	mu     sync.Mutex
	Prefix string
	queued []string
	next   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs that generates "<prefix>-1", "<prefix>-2", ...
func NewMockIDs(prefix string) *MockIDs {
	return &MockIDs{Prefix: prefix}
}

// NewID returns the next queued ID, or the next sequential one
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queued) > 0 {
		id := g.queued[0]
		g.queued = g.queued[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("%s-%d", g.Prefix, g.next)
}

// Queue adds values to be returned before sequential IDs
func (g *MockIDs) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, values...)
}
