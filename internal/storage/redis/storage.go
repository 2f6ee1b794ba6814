package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance, retrying the initial ping with
// exponential backoff
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, oops.In("redis").Code("INVALID_REDIS_URL").Wrap(err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	backoff := retry.WithMaxRetries(cfg.ConnectAttempts, retry.NewExponential(cfg.ConnectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.In("redis").Code("REDIS_CONNECT_FAILED").With("attempts", cfg.ConnectAttempts).Wrap(err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return oops.In("redis").With("operation", "ping").Wrap(err)
	}
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return oops.In("redis").With("operation", "encode identity").Wrap(err)
	}

	created, err := s.client.SetNX(ctx, identityKey(identity.NormalizedEmail), data, 0).Result()
	if err != nil {
		return oops.In("redis").
			With("operation", "create identity").
			With("email", identity.NormalizedEmail).
			Wrap(err)
	}
	if !created {
		return model.ErrDuplicateIdentity
	}
	return nil
}

func (s *Storage) GetIdentityByEmail(ctx context.Context, normalizedEmail string) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(normalizedEmail)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrIdentityNotFound
		}
		return nil, oops.In("redis").
			With("operation", "get identity").
			With("email", normalizedEmail).
			Wrap(err)
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, oops.In("redis").With("operation", "decode identity").Wrap(err)
	}
	return &identity, nil
}

// Session operations

// SaveSession stores the record with a TTL of its lifetime so Redis evicts
// it without a cleanup pass. The TTL comes from the session's own timestamps,
// not the local clock. Sessions with no lifetime are not stored.
func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(session.IssuedAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return oops.In("redis").With("operation", "encode session").Wrap(err)
	}

	if err := s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return oops.In("redis").
			With("operation", "save session").
			With("session_id", session.ID).
			Wrap(err)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, oops.In("redis").
			With("operation", "get session").
			With("session_id", id).
			Wrap(err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, oops.In("redis").With("operation", "decode session").Wrap(err)
	}
	return &session, nil
}

func (s *Storage) DeleteSession(ctx context.Context, id model.SessionID) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return oops.In("redis").
			With("operation", "delete session").
			With("session_id", id).
			Wrap(err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: session keys carry their own TTL
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
