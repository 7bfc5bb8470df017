package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppError_UnwrapAndMessage(t *testing.T) {
	err := NewAppError(ErrInvalidProduct, "name too short", CodeValidation)

	require.ErrorIs(t, err, ErrInvalidProduct)
	require.Equal(t, "name too short: invalid product field", err.Error())

	bare := NewAppError(ErrInvalidInput, "", CodeValidation)
	require.Equal(t, ErrInvalidInput.Error(), bare.Error())
}

func TestLockedError(t *testing.T) {
	err := fmt.Errorf("login: %w", &LockedError{Remaining: 29600 * time.Millisecond})

	require.ErrorIs(t, err, ErrAccountLocked)

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	require.Equal(t, 29600*time.Millisecond, locked.Remaining)
	require.Contains(t, err.Error(), "30s")
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", Validation(ErrInvalidProduct, "bad"), CodeValidation},
		{"locked", &LockedError{Remaining: time.Second}, CodeLocked},
		{"joined credentials and lock", errors.Join(ErrInvalidCredentials, &LockedError{}), CodeLocked},
		{"credentials", ErrInvalidCredentials, CodeAuth},
		{"not found", fmt.Errorf("delete: %w", ErrRecordNotFound), CodeNotFound},
		{"conflict", ErrProductExists, CodeConflict},
		{"exhausted", ErrIDSpaceExhausted, CodeExhausted},
		{"throttled", ErrRateLimitExceeded, CodeThrottled},
		{"storage", fmt.Errorf("%w: open: boom", ErrStorage), CodeStorage},
		{"unknown", errors.New("boom"), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}
