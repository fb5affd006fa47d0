package seed

import (
	"context"
	"fmt"

	"transfertrack/internal/auth"
	"transfertrack/internal/store"
	"transfertrack/internal/utils"
	"transfertrack/pkg/types"
)

type seedUser struct {
	Username string
	Location string
	Password string
	IsAdmin  bool
}

// Edit the Location field to change display names; Username/Password are the
// login credentials.
var seedUsers = []seedUser{
	{Username: "location1", Location: "Streator", Password: "password1"},
	{Username: "location2", Location: "Bradley", Password: "password2"},
	{Username: "location3", Location: "Bloomington", Password: "password3"},
	{Username: "location4", Location: "Colorado Springs", Password: "password4"},
	{Username: "location5", Location: "Matthews", Password: "password5"},
	{Username: "admin", Location: "Admin", Password: "admin123", IsAdmin: true},
}

// SeedUsers upserts the fixture accounts: five locations plus an admin.
// Existing rows keyed by username get their location, password, and admin
// flag refreshed.
func SeedUsers(ctx context.Context, userRepo *store.UserRepository) ([]types.User, error) {
	created := make([]types.User, 0, len(seedUsers))

	for _, su := range seedUsers {
		hash, err := auth.HashPassword(su.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", su.Username, err)
		}

		user := &types.User{
			ID:           utils.NanoID(),
			Username:     su.Username,
			PasswordHash: hash,
			Location:     su.Location,
			IsAdmin:      su.IsAdmin,
		}

		if err := userRepo.Upsert(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to upsert user %s: %w", su.Username, err)
		}

		created = append(created, *user)
	}

	return created, nil
}
