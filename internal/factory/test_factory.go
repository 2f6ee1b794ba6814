package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/dormo/internal/dependencies/mocks"
	"github.com/mcoot/dormo/internal/ratelimit"
	"github.com/mcoot/dormo/internal/services/credentials"
	"github.com/mcoot/dormo/internal/services/session"
	"github.com/mcoot/dormo/internal/storage/memory"
	"github.com/mcoot/dormo/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Memory is the backing store, for inspecting state
	Memory *memory.Storage

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// TestOption customizes the configuration of a TestApp
type TestOption func(*Config)

// WithRateLimit enables the limiter with the given configuration
func WithRateLimit(cfg ratelimit.Config) TestOption {
	return func(c *Config) {
		c.RateLimit = &cfg
	}
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Hashing uses the minimum bcrypt cost and rate limiting is off unless
// WithRateLimit is given.
func NewTestApp(opts ...TestOption) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs("id")

	credCfg := credentials.DefaultConfig()
	credCfg.HashCost = bcrypt.MinCost

	sessionCfg := session.DefaultConfig()
	sessionCfg.Secret = testutil.SessionSecret

	cfg := Config{
		Logger:      testutil.NopLogger(),
		Credentials: credCfg,
		Session:     sessionCfg,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	app, err := newWithDependencies(store, mockClock, mockIDs, cfg)
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:       app,
		Memory:    store,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}
