package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"zerina/internal/auth/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newUser(email string) *models.User {
	u, err := models.NewUser(domain.UserID(uuid.New()), email, "hash", time.Now().UTC())
	s.Require().NoError(err)
	return u
}

func (s *MemoryStoreSuite) TestLookupBehavior() {
	s.Run("returns user by ID when exists", func() {
		u := s.newUser("jane.doe@example.com")
		s.Require().NoError(s.store.Save(context.Background(), u))

		found, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("returns user by email case-insensitively", func() {
		u := s.newUser("Mixed.Case@Example.com")
		s.Require().NoError(s.store.Save(context.Background(), u))

		found, err := s.store.FindByEmail(context.Background(), "mixed.case@example.com")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(context.Background(), domain.UserID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown email", func() {
		_, err := s.store.FindByEmail(context.Background(), "nobody@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestSaveReturnsCopies() {
	u := s.newUser("copy@example.com")
	s.Require().NoError(s.store.Save(context.Background(), u))

	found, err := s.store.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	found.Email = "mutated@example.com"

	again, err := s.store.FindByID(context.Background(), u.ID)
	s.Require().NoError(err)
	s.Equal("copy@example.com", again.Email)
}

func (s *MemoryStoreSuite) TestExecute() {
	s.Run("applies mutation when validation passes", func() {
		u := s.newUser("promote@example.com")
		s.Require().NoError(s.store.Save(context.Background(), u))

		now := time.Now().UTC()
		updated, err := s.store.Execute(context.Background(), u.ID,
			func(cur *models.User) error { return cur.CanChangeRole(domain.RoleVendor) },
			func(cur *models.User) { cur.ApplyRoleChange(domain.RoleVendor, now) },
		)
		s.Require().NoError(err)
		s.Equal(domain.RoleVendor, updated.Role)

		persisted, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(domain.RoleVendor, persisted.Role)
	})

	s.Run("leaves user unchanged when validation fails", func() {
		u := s.newUser("admin@example.com")
		u.Role = domain.RoleAdmin
		s.Require().NoError(s.store.Save(context.Background(), u))

		_, err := s.store.Execute(context.Background(), u.ID,
			func(cur *models.User) error { return cur.CanChangeRole(domain.RoleVendor) },
			func(cur *models.User) { cur.ApplyRoleChange(domain.RoleVendor, time.Now()) },
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		persisted, err := s.store.FindByID(context.Background(), u.ID)
		s.Require().NoError(err)
		s.Equal(domain.RoleAdmin, persisted.Role)
	})

	s.Run("returns ErrNotFound for unknown user", func() {
		_, err := s.store.Execute(context.Background(), domain.UserID(uuid.New()),
			func(*models.User) error { return nil },
			func(*models.User) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestDelete() {
	u := s.newUser("gone@example.com")
	s.Require().NoError(s.store.Save(context.Background(), u))

	s.Require().NoError(s.store.Delete(context.Background(), u.ID))

	_, err := s.store.FindByID(context.Background(), u.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByEmail(context.Background(), u.Email)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(context.Background(), u.ID), sentinel.ErrNotFound)
}
