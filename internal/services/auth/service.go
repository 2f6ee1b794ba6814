package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/dormo/internal/errutil"
	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/services/credentials"
	"github.com/mcoot/dormo/internal/services/session"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Status is the authentication state reported for a principal
type Status struct {
	IsAuthenticated bool
	UserName        string
}

// Service implements the register, login, logout and status operations on
// top of the credential store and session issuer
type Service struct {
	credentials credentials.Store
	issuer      session.Issuer
	logger      *slog.Logger
}

// New creates a new auth Service
func New(credentials credentials.Store, issuer session.Issuer, logger *slog.Logger) *Service {
	return &Service{
		credentials: credentials,
		issuer:      issuer,
		logger:      logger,
	}
}

// Register creates an identity and signs it in with a non-persistent session.
// Input problems are returned as *credentials.ValidationError.
func (s *Service) Register(ctx context.Context, email, password string) (*session.Ticket, error) {
	identity, err := s.credentials.Create(ctx, email, password)
	if err != nil {
		return nil, err
	}

	ticket, err := s.issuer.Issue(ctx, identity, false)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID)
	return ticket, nil
}

// Login verifies the credentials and issues a non-persistent session.
// Unknown email and wrong password both return ErrInvalidCredentials.
// Failed attempts never lock the account.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Ticket, error) {
	identity, err := s.credentials.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrIdentityNotFound) {
		return nil, err
	}

	ok, err := s.credentials.VerifyPassword(ctx, identity, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.InfoContext(ctx, "login failed")
		return nil, ErrInvalidCredentials
	}

	ticket, err := s.issuer.Issue(ctx, identity, false)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "login succeeded", "identity_id", identity.ID)
	return ticket, nil
}

// Logout revokes the principal's session if it has one. It never fails: a
// revocation error is logged and the caller is signed out regardless.
func (s *Service) Logout(ctx context.Context, principal session.Principal) {
	if !principal.IsAuthenticated() {
		return
	}
	if err := s.issuer.Revoke(ctx, principal.SessionID); err != nil {
		errutil.LogError(ctx, s.logger, "failed to revoke session", err, "session_id", principal.SessionID)
	}
}

// Status reports the authentication state of the principal
func (s *Service) Status(principal session.Principal) Status {
	if !principal.IsAuthenticated() {
		return Status{}
	}
	return Status{IsAuthenticated: true, UserName: principal.UserName}
}
