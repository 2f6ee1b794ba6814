package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	identities map[string]*model.Identity // keyed by normalized email
	sessions   map[model.SessionID]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		identities: make(map[string]*model.Identity),
		sessions:   make(map[model.SessionID]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.identities[identity.NormalizedEmail]; exists {
		return model.ErrDuplicateIdentity
	}
	stored := *identity
	s.identities[identity.NormalizedEmail] = &stored
	return nil
}

func (s *Storage) GetIdentityByEmail(ctx context.Context, normalizedEmail string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[normalizedEmail]
	if !ok {
		return nil, model.ErrIdentityNotFound
	}
	found := *identity
	return &found, nil
}

// IdentityCount returns the number of stored identities
func (s *Storage) IdentityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	found := *session
	return &found, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Ping always succeeds for the in-memory store
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store
func (s *Storage) Close() error {
	return nil
}
