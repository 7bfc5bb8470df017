package repository

import (
	"context"
	"fmt"

	"github.com/amirk1998/stockkeeper/internal/csvstore"
	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

// UserRepository stores credentials in the users file.
type UserRepository struct {
	store *csvstore.Store[models.User]
}

// NewUserRepository creates a user repository over the credentials file
func NewUserRepository(path string) *UserRepository {
	return &UserRepository{store: csvstore.New[models.User](path, userCodec{})}
}

// Path returns the users file location.
func (r *UserRepository) Path() string {
	return r.store.Path()
}

// Create appends a new credential record
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.store.Append(ctx, *user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername retrieves a user by its exact username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var found *models.User
	err := r.store.Scan(ctx, func(u models.User) bool {
		if u.Username == username {
			found = &u
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if found == nil {
		return nil, errors.ErrUserNotFound
	}
	return found, nil
}

// IsUsernameTaken reports whether username is already registered.
// Usernames are case-sensitive.
func (r *UserRepository) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	taken, err := r.store.Exists(ctx, func(u models.User) bool {
		return u.Username == username
	})
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return taken, nil
}

func (r *UserRepository) IsSaltTaken(ctx context.Context, salt string) (bool, error) {
	taken, err := r.store.Exists(ctx, func(u models.User) bool {
		return u.Salt == salt
	})
	if err != nil {
		return false, fmt.Errorf("failed to check salt: %w", err)
	}
	return taken, nil
}
