// Package storagetest holds behaviour shared by every storage backend
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dormo/internal/model"
	"github.com/mcoot/dormo/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Embedding suites set Storage in their SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) identity(email string) *model.Identity {
	return &model.Identity{
		ID:              model.IdentityID("id-" + model.NormalizeEmail(email)),
		UserName:        email,
		Email:           email,
		NormalizedEmail: model.NormalizeEmail(email),
		PasswordHash:    "$2a$04$hash",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func (s *Suite) session(id string) *model.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Session{
		ID:         model.SessionID(id),
		IdentityID: "identity-1",
		UserName:   "a@x.com",
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Hour),
	}
}

// Identity tests

func (s *Suite) TestCreateAndGetIdentity() {
	identity := s.identity("Alice@Example.com")

	err := s.Storage.CreateIdentity(s.Ctx, identity)
	s.Require().NoError(err)

	found, err := s.Storage.GetIdentityByEmail(s.Ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(identity.ID, found.ID)
	s.Equal("Alice@Example.com", found.UserName)
	s.Equal(identity.PasswordHash, found.PasswordHash)
}

func (s *Suite) TestGetIdentityNotFound() {
	_, err := s.Storage.GetIdentityByEmail(s.Ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *Suite) TestCreateDuplicateIdentity() {
	s.Require().NoError(s.Storage.CreateIdentity(s.Ctx, s.identity("a@x.com")))

	dup := s.identity("A@X.COM")
	dup.ID = "other"
	err := s.Storage.CreateIdentity(s.Ctx, dup)
	s.ErrorIs(err, model.ErrDuplicateIdentity)

	found, err := s.Storage.GetIdentityByEmail(s.Ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(model.IdentityID("id-a@x.com"), found.ID)
}

func (s *Suite) TestConcurrentCreateKeepsOneIdentity() {
	const attempts = 10

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity := s.identity("race@x.com")
			identity.ID = model.IdentityID(fmt.Sprintf("id-%d", i))
			errs <- s.Storage.CreateIdentity(s.Ctx, identity)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrDuplicateIdentity)
	}
	s.Equal(1, succeeded)
}

// Session tests

func (s *Suite) TestSaveAndGetSession() {
	session := s.session("session-1")

	err := s.Storage.SaveSession(s.Ctx, session)
	s.Require().NoError(err)

	found, err := s.Storage.GetSession(s.Ctx, "session-1")
	s.Require().NoError(err)
	s.Equal(session.IdentityID, found.IdentityID)
	s.Equal(session.UserName, found.UserName)
	s.True(session.ExpiresAt.Equal(found.ExpiresAt))
}

func (s *Suite) TestGetSessionNotFound() {
	_, err := s.Storage.GetSession(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestDeleteSessionIsIdempotent() {
	s.Require().NoError(s.Storage.SaveSession(s.Ctx, s.session("session-1")))

	s.Require().NoError(s.Storage.DeleteSession(s.Ctx, "session-1"))
	s.Require().NoError(s.Storage.DeleteSession(s.Ctx, "session-1"))

	_, err := s.Storage.GetSession(s.Ctx, "session-1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestPing() {
	s.NoError(s.Storage.Ping(s.Ctx))
}
