// Package session issues, validates and revokes signed session tokens
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/dormo/internal/dependencies/clock"
	"github.com/mcoot/dormo/internal/dependencies/ids"
	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// Errors
var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrSecretTooShort = errors.New("session secret must be at least 32 bytes")
)

// MinSecretLength is the smallest accepted HMAC signing key
const MinSecretLength = 32

// Issuer is the session capability used by the auth endpoints
type Issuer interface {
	// Issue creates a session for the identity and returns its signed token
	Issue(ctx context.Context, identity *model.Identity, persistent bool) (*Ticket, error)

	// Validate resolves a token to its principal.
	// Returns ErrInvalidSession for bad, expired or revoked tokens.
	Validate(ctx context.Context, token string) (Principal, error)

	// Revoke ends a session. Revoking an unknown session is not an error.
	Revoke(ctx context.Context, id model.SessionID) error
}

// Ticket is an issued session and its signed token
type Ticket struct {
	Token   string
	Session *model.Session
}

// Claims are the JWT claims carried by a session token
type Claims struct {
	jwt.RegisteredClaims
	UserName   string `json:"name"`
	Persistent bool   `json:"persistent,omitempty"`
}

// Config holds configuration for the session issuer
type Config struct {
	Secret   []byte
	Lifetime time.Duration
	Issuer   string
}

// DefaultConfig returns default session configuration without a secret
func DefaultConfig() Config {
	return Config{
		Lifetime: time.Hour,
		Issuer:   "dormo",
	}
}

// JWTIssuer issues HS256 tokens backed by server-side session records so
// that logout can revoke a token before it expires
type JWTIssuer struct {
	store storage.SessionStore
	clock clock.Clock
	ids   ids.Generator
	cfg   Config
}

// Ensure JWTIssuer implements Issuer
var _ Issuer = (*JWTIssuer)(nil)

// NewJWTIssuer creates a JWTIssuer
func NewJWTIssuer(store storage.SessionStore, clock clock.Clock, ids ids.Generator, cfg Config) (*JWTIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultConfig().Lifetime
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultConfig().Issuer
	}
	return &JWTIssuer{
		store: store,
		clock: clock,
		ids:   ids,
		cfg:   cfg,
	}, nil
}

// Issue creates and persists a session, then signs its token
func (i *JWTIssuer) Issue(ctx context.Context, identity *model.Identity, persistent bool) (*Ticket, error) {
	now := i.clock.Now()
	session := &model.Session{
		ID:         model.SessionID(i.ids.NewID()),
		IdentityID: identity.ID,
		UserName:   identity.UserName,
		IssuedAt:   now,
		ExpiresAt:  now.Add(i.cfg.Lifetime),
		Persistent: persistent,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        string(session.ID),
			Subject:   string(session.IdentityID),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		UserName:   session.UserName,
		Persistent: persistent,
	})

	signed, err := token.SignedString(i.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	if err := i.store.SaveSession(ctx, session); err != nil {
		return nil, err
	}

	return &Ticket{Token: signed, Session: session}, nil
}

// Validate verifies the token signature and expiry, then checks that the
// session has not been revoked
func (i *JWTIssuer) Validate(ctx context.Context, token string) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return i.cfg.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil || claims.ID == "" {
		return Anonymous(), ErrInvalidSession
	}

	session, err := i.store.GetSession(ctx, model.SessionID(claims.ID))
	if errors.Is(err, model.ErrSessionNotFound) {
		return Anonymous(), ErrInvalidSession
	}
	if err != nil {
		return Anonymous(), err
	}
	if session.IsExpired(i.clock.Now()) {
		return Anonymous(), ErrInvalidSession
	}

	return Principal{
		SessionID:  session.ID,
		IdentityID: session.IdentityID,
		UserName:   session.UserName,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// Revoke deletes the session record
func (i *JWTIssuer) Revoke(ctx context.Context, id model.SessionID) error {
	return i.store.DeleteSession(ctx, id)
}

// CleanExpired removes session records that have expired
func (i *JWTIssuer) CleanExpired(ctx context.Context) (int, error) {
	return i.store.DeleteExpiredSessions(ctx, i.clock.Now())
}
