// Package postgres implements storage on PostgreSQL via pgx
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// poolIface is the subset of pgxpool.Pool used by Storage, satisfied by
// pgxmock in tests
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool poolIface
}

// New connects to PostgreSQL, retrying the initial ping with exponential backoff
func New(ctx context.Context, cfg Config) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, oops.In("postgres").Code("INVALID_DSN").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.In("postgres").Code("POOL_INIT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(cfg.ConnectAttempts, retry.NewExponential(cfg.ConnectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.In("postgres").Code("POSTGRES_CONNECT_FAILED").With("attempts", cfg.ConnectAttempts).Wrap(err)
	}

	return &Storage{pool: pool}, nil
}

// NewWithPool creates a Storage over an existing pool (for testing)
func NewWithPool(pool poolIface) *Storage {
	return &Storage{pool: pool}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close closes the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.In("postgres").With("operation", "ping").Wrap(err)
	}
	return nil
}

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO identities (id, user_name, email, normalized_email, password_hash, lockout_enabled, access_failed_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(identity.ID),
		identity.UserName,
		identity.Email,
		identity.NormalizedEmail,
		identity.PasswordHash,
		identity.LockoutEnabled,
		identity.AccessFailedCount,
		identity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.ErrDuplicateIdentity
		}
		return oops.In("postgres").
			With("operation", "create identity").
			With("email", identity.NormalizedEmail).
			Wrap(err)
	}
	return nil
}

func (s *Storage) GetIdentityByEmail(ctx context.Context, normalizedEmail string) (*model.Identity, error) {
	var identity model.Identity
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_name, email, normalized_email, password_hash, lockout_enabled, access_failed_count, created_at
		 FROM identities WHERE normalized_email = $1`,
		normalizedEmail,
	).Scan(
		&id,
		&identity.UserName,
		&identity.Email,
		&identity.NormalizedEmail,
		&identity.PasswordHash,
		&identity.LockoutEnabled,
		&identity.AccessFailedCount,
		&identity.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrIdentityNotFound
	}
	if err != nil {
		return nil, oops.In("postgres").
			With("operation", "get identity").
			With("email", normalizedEmail).
			Wrap(err)
	}
	identity.ID = model.IdentityID(id)
	return &identity, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, identity_id, user_name, issued_at, expires_at, persistent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		string(session.ID),
		string(session.IdentityID),
		session.UserName,
		session.IssuedAt,
		session.ExpiresAt,
		session.Persistent,
	)
	if err != nil {
		return oops.In("postgres").
			With("operation", "save session").
			With("session_id", session.ID).
			Wrap(err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var session model.Session
	var sessionID, identityID string
	err := s.pool.QueryRow(ctx,
		`SELECT id, identity_id::text, user_name, issued_at, expires_at, persistent
		 FROM sessions WHERE id = $1`,
		string(id),
	).Scan(
		&sessionID,
		&identityID,
		&session.UserName,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.Persistent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, oops.In("postgres").
			With("operation", "get session").
			With("session_id", id).
			Wrap(err)
	}
	session.ID = model.SessionID(sessionID)
	session.IdentityID = model.IdentityID(identityID)
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, string(id))
	if err != nil {
		return oops.In("postgres").
			With("operation", "delete session").
			With("session_id", id).
			Wrap(err)
	}
	return nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.In("postgres").With("operation", "delete expired sessions").Wrap(err)
	}
	return int(tag.RowsAffected()), nil
}
