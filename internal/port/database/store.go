// Package database defines the account store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/dexcache/internal/domain/user"
)

// UserStore persists accounts. Lookups of missing users return an error
// wrapping domain.ErrNotFound; duplicate usernames wrap domain.ErrConflict.
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	DeleteAllUsers(ctx context.Context) (int64, error)
}
