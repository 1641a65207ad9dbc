//go:build integration

package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zerina/internal/auth/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
	"zerina/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()

	_, err := pc.DB.ExecContext(ctx, Schema)
	require.NoError(t, err)

	store := NewPostgresStore(pc.DB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	newUser := func(email string) *models.User {
		u, err := models.NewUser(domain.NewUserID(), email, "hash", now)
		require.NoError(t, err)
		return u
	}

	t.Run("round trip preserves all fields", func(t *testing.T) {
		u := newUser("seller@example.com")
		phone := "+38761123456"
		u.Phone = &phone
		u.EmailVerified = true
		require.NoError(t, store.Save(ctx, u))

		found, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, found.Email)
		require.True(t, found.EmailVerified)
		require.Equal(t, phone, *found.Phone)
		require.Equal(t, domain.RoleBuyer, found.Role)
		require.Equal(t, now.Unix(), found.CreatedAt.Unix())
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		u := newUser("Mixed.Case@Example.com")
		require.NoError(t, store.Save(ctx, u))

		found, err := store.FindByEmail(ctx, "mixed.case@example.com")
		require.NoError(t, err)
		require.Equal(t, u.ID, found.ID)
	})

	t.Run("execute applies a role change", func(t *testing.T) {
		u := newUser("promote-me@example.com")
		require.NoError(t, store.Save(ctx, u))

		updated, err := store.Execute(ctx, u.ID,
			func(current *models.User) error {
				return current.CanChangeRole(domain.RoleVendor)
			},
			func(current *models.User) {
				current.ApplyRoleChange(domain.RoleVendor, now.Add(time.Minute))
			},
		)
		require.NoError(t, err)
		require.Equal(t, domain.RoleVendor, updated.Role)

		found, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleVendor, found.Role)
	})

	t.Run("unknown user reports not found", func(t *testing.T) {
		_, err := store.FindByID(ctx, domain.NewUserID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		require.ErrorIs(t, store.Delete(ctx, domain.NewUserID()), sentinel.ErrNotFound)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		u := newUser("leaver@example.com")
		require.NoError(t, store.Save(ctx, u))
		require.NoError(t, store.Delete(ctx, u.ID))

		_, err := store.FindByID(ctx, u.ID)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
