package store

import (
	"context"
	"fmt"
	"time"

	"transfertrack/internal/utils"
	"transfertrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "transfertrack.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UserByUsername(ctx context.Context, username string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user-by-username query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user by username: %w", err)
	}

	return &user, nil
}

// Locations returns every non-admin user except the caller, ordered by
// location name. Admin accounts are not transfer endpoints and never appear
// in location pickers.
func (r *UserRepository) Locations(ctx context.Context, excludeUserID string) ([]types.UserRef, error) {
	query, args, err := psql().
		Select("id", "username", "location").
		From(userTableName).
		Where(sq.And{
			sq.NotEq{"id": excludeUserID},
			sq.Eq{"is_admin": false},
		}).
		OrderBy("location asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate locations query: %w", err)
	}

	var locations []types.UserRef
	err = pgxscan.Select(ctx, r.pool, &locations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}

	return locations, nil
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Upsert inserts the user or refreshes its location, password hash, and admin
// flag when the username already exists. Used by the seed command.
func (r *UserRepository) Upsert(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		Suffix("ON CONFLICT (username) DO UPDATE SET location = EXCLUDED.location, password_hash = EXCLUDED.password_hash, is_admin = EXCLUDED.is_admin, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}
