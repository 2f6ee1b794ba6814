// Package credentials owns identity creation and password verification
package credentials

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/dormo/internal/dependencies/clock"
	"github.com/mcoot/dormo/internal/dependencies/ids"
	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// Store is the credential capability used by the auth endpoints
type Store interface {
	// Create validates and persists a new identity. Input problems are
	// reported as a *ValidationError.
	Create(ctx context.Context, email, password string) (*model.Identity, error)

	// FindByEmail looks up an identity case-insensitively.
	// Returns model.ErrIdentityNotFound when there is none.
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// VerifyPassword reports whether password matches the identity's hash.
	// A nil identity is compared against a dummy hash and never matches.
	VerifyPassword(ctx context.Context, identity *model.Identity, password string) (bool, error)
}

// Config holds configuration for the credential service
type Config struct {
	Policy          PasswordPolicy
	HashCost        int
	HashConcurrency int
}

// DefaultConfig returns default credential configuration
func DefaultConfig() Config {
	return Config{
		Policy: PasswordPolicy{
			RequiredLength: 6,
			RequireDigit:   true,
		},
		HashCost:        bcrypt.DefaultCost,
		HashConcurrency: runtime.GOMAXPROCS(0),
	}
}

const dummyPassword = "dormo-timing-equalizer-0"

// Service implements Store over an identity store and a password hasher
type Service struct {
	identities storage.IdentityStore
	hasher     Hasher
	policy     PasswordPolicy
	validate   *validator.Validate
	clock      clock.Clock
	ids        ids.Generator

	dummyOnce sync.Once
	dummyHash string
}

// Ensure Service implements Store
var _ Store = (*Service)(nil)

// New creates a new credential Service
func New(identities storage.IdentityStore, hasher Hasher, clock clock.Clock, ids ids.Generator, cfg Config) *Service {
	return &Service{
		identities: identities,
		hasher:     hasher,
		policy:     cfg.Policy,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		clock:      clock,
		ids:        ids,
	}
}

// Create registers a new identity whose user name is the email address
func (s *Service) Create(ctx context.Context, email, password string) (*model.Identity, error) {
	normalized := model.NormalizeEmail(email)

	var reasons []Reason
	if err := s.validate.Var(email, "required,email"); err != nil {
		reasons = append(reasons, invalidEmail(email))
	} else {
		_, err := s.identities.GetIdentityByEmail(ctx, normalized)
		switch {
		case err == nil:
			reasons = append(reasons, duplicateUserName(email))
		case !errors.Is(err, model.ErrIdentityNotFound):
			return nil, err
		}
	}
	reasons = append(reasons, s.policy.Check(password)...)
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	identity := &model.Identity{
		ID:              model.IdentityID(s.ids.NewID()),
		UserName:        email,
		Email:           email,
		NormalizedEmail: normalized,
		PasswordHash:    hash,
		CreatedAt:       s.clock.Now(),
	}

	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		// Lost a race with a concurrent registration
		if errors.Is(err, model.ErrDuplicateIdentity) {
			return nil, &ValidationError{Reasons: []Reason{duplicateUserName(email)}}
		}
		return nil, err
	}

	return identity, nil
}

// FindByEmail looks up an identity by email, case-insensitively
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return s.identities.GetIdentityByEmail(ctx, model.NormalizeEmail(email))
}

// VerifyPassword checks password against the identity's stored hash
func (s *Service) VerifyPassword(ctx context.Context, identity *model.Identity, password string) (bool, error) {
	if identity == nil {
		s.compareDummy(ctx, password)
		return false, nil
	}
	return s.hasher.Compare(ctx, identity.PasswordHash, password)
}

// compareDummy spends the same hashing work as a real comparison so unknown
// emails are not distinguishable by response time
func (s *Service) compareDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	})
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Compare(ctx, s.dummyHash, password)
}
