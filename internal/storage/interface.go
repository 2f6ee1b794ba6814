package storage

import (
	"context"
	"time"

	"github.com/mcoot/dormo/internal/model"
)

// IdentityStore persists registered identities.
// Implementations must enforce uniqueness of NormalizedEmail atomically and
// report a conflict as model.ErrDuplicateIdentity.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentityByEmail(ctx context.Context, normalizedEmail string) (*model.Identity, error)
}

// SessionStore persists server-side session records
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	DeleteSession(ctx context.Context, id model.SessionID) error

	// DeleteExpiredSessions removes sessions that expired at or before now
	// and returns how many were removed
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	IdentityStore
	SessionStore

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}
