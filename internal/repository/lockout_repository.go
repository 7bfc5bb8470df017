package repository

import (
	"context"
	"fmt"

	"github.com/amirk1998/stockkeeper/internal/csvstore"
	"github.com/amirk1998/stockkeeper/internal/models"
)

// LockoutRepository persists the single login lockout record.
type LockoutRepository struct {
	store *csvstore.Store[models.LockoutState]
}

func NewLockoutRepository(path string) *LockoutRepository {
	return &LockoutRepository{store: csvstore.New[models.LockoutState](path, lockoutCodec{})}
}

// Load returns the stored state. ok is false when the file is missing or
// holds no decodable record.
func (r *LockoutRepository) Load(ctx context.Context) (state models.LockoutState, ok bool, err error) {
	err = r.store.Scan(ctx, func(s models.LockoutState) bool {
		state, ok = s, true
		return false
	})
	if err != nil {
		return models.LockoutState{}, false, fmt.Errorf("failed to load lockout state: %w", err)
	}
	return state, ok, nil
}

// Save overwrites the stored state.
func (r *LockoutRepository) Save(ctx context.Context, state models.LockoutState) error {
	if err := r.store.Replace(ctx, []models.LockoutState{state}); err != nil {
		return fmt.Errorf("failed to save lockout state: %w", err)
	}
	return nil
}
