// Package auth verifies user credentials against bcrypt hashes stored on the
// users table. It is the only place passwords are handled.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"transfertrack/pkg/types"
)

const bcryptCost = 10

// dummyHash is compared against when the username does not exist, so the
// invalid-username and invalid-password paths cost the same.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

type userStore interface {
	UserByUsername(ctx context.Context, username string) (*types.User, error)
}

type Service struct {
	users userStore
}

func NewService(users userStore) *Service {
	return &Service{users: users}
}

// Authenticate checks the credentials and returns the matching user. Any
// failure surfaces as ErrInvalidLogin; callers never learn whether the
// username exists.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*types.User, error) {
	if username == "" || password == "" {
		return nil, types.ErrInvalidLogin
	}

	user, err := s.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, types.ErrInvalidLogin
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, types.ErrInvalidLogin
	}

	return user, nil
}

// HashPassword produces a bcrypt hash for storage on a user row.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
