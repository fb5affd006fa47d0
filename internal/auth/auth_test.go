package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfertrack/pkg/types"
)

type fakeUserStore struct {
	users map[string]*types.User
	err   error
}

func (f *fakeUserStore) UserByUsername(_ context.Context, username string) (*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[username]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return user, nil
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	hash, err := HashPassword("password1")
	require.NoError(t, err)

	store := &fakeUserStore{users: map[string]*types.User{
		"location1": {ID: "u1", Username: "location1", PasswordHash: hash, Location: "Streator"},
	}}
	svc := NewService(store)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "location1", "password1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "location1", "nope")
		assert.ErrorIs(t, err, types.ErrInvalidLogin)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "ghost", "password1")
		assert.ErrorIs(t, err, types.ErrInvalidLogin)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "", "")
		assert.ErrorIs(t, err, types.ErrInvalidLogin)
	})

	t.Run("store failure is not invalid login", func(t *testing.T) {
		broken := NewService(&fakeUserStore{err: errors.New("connection refused")})
		_, err := broken.Authenticate(ctx, "location1", "password1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrInvalidLogin)
	})
}
