package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestIdentityCount() {
	s.Equal(0, s.storage.IdentityCount())

	_ = s.storage.CreateIdentity(s.Ctx, &model.Identity{ID: "1", NormalizedEmail: "a@x.com"})
	_ = s.storage.CreateIdentity(s.Ctx, &model.Identity{ID: "2", NormalizedEmail: "a@x.com"})
	_ = s.storage.CreateIdentity(s.Ctx, &model.Identity{ID: "3", NormalizedEmail: "b@x.com"})

	s.Equal(2, s.storage.IdentityCount())
}

func (s *StorageSuite) TestStoredIdentityIsACopy() {
	identity := &model.Identity{ID: "1", NormalizedEmail: "a@x.com", PasswordHash: "h"}
	s.Require().NoError(s.storage.CreateIdentity(s.Ctx, identity))

	identity.PasswordHash = "changed"

	found, err := s.storage.GetIdentityByEmail(s.Ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal("h", found.PasswordHash)
}

func (s *StorageSuite) TestDeleteExpiredSessions() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveSession(s.Ctx, &model.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)})
	_ = s.storage.SaveSession(s.Ctx, &model.Session{ID: "edge", ExpiresAt: now})
	_ = s.storage.SaveSession(s.Ctx, &model.Session{ID: "live", ExpiresAt: now.Add(time.Hour)})

	removed, err := s.storage.DeleteExpiredSessions(s.Ctx, now)
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, err = s.storage.GetSession(s.Ctx, "live")
	s.NoError(err)
	_, err = s.storage.GetSession(s.Ctx, "old")
	s.ErrorIs(err, model.ErrSessionNotFound)
}
