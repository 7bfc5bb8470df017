package errors

import (
	"errors"
	"fmt"
	"time"
)

// Custom error types for better error handling
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("username is already taken")
	ErrAccountLocked      = errors.New("too many failed login attempts")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrInvalidProduct  = errors.New("invalid product field")

	// Storage errors
	ErrStorage            = errors.New("storage failure")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrRecordNotFound     = errors.New("record not found")
	ErrProductExists      = errors.New("product name is already taken")
	ErrIDSpaceExhausted   = errors.New("no space left for a new product id")
	ErrSaltSpaceExhausted = errors.New("could not generate a unique salt")

	// Rate limiting errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Backup errors
	ErrBackupFailed   = errors.New("backup operation failed")
	ErrBackupCorrupt  = errors.New("checksum mismatch: backup file may be corrupted")
	ErrBackupNotFound = errors.New("backup not found")
)

// Category codes carried by AppError.
const (
	CodeValidation = 400
	CodeAuth       = 401
	CodeNotFound   = 404
	CodeConflict   = 409
	CodeLocked     = 423
	CodeThrottled  = 429
	CodeStorage    = 500
	CodeExhausted  = 507
)

// AppError wraps errors with additional context
type AppError struct {
	Err     error
	Message string
	Code    int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(err error, message string, code int) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// Validation is shorthand for a CodeValidation AppError.
func Validation(err error, format string, args ...any) *AppError {
	return NewAppError(err, fmt.Sprintf(format, args...), CodeValidation)
}

// LockedError reports that login attempts are blocked for Remaining.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%v: try again in %s", ErrAccountLocked, e.Remaining.Round(time.Second))
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// CodeOf returns the category code for err, falling back to CodeStorage
// for storage failures and 0 when nothing matches.
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, ErrAccountLocked):
		return CodeLocked
	case errors.Is(err, ErrInvalidCredentials):
		return CodeAuth
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUserNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUserAlreadyExists), errors.Is(err, ErrProductExists):
		return CodeConflict
	case errors.Is(err, ErrIDSpaceExhausted), errors.Is(err, ErrSaltSpaceExhausted):
		return CodeExhausted
	case errors.Is(err, ErrRateLimitExceeded):
		return CodeThrottled
	case errors.Is(err, ErrStorage):
		return CodeStorage
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidProduct):
		return CodeValidation
	}
	return 0
}
