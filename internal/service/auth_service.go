package service

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/lockout"
	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/internal/ratelimit"
	"github.com/amirk1998/stockkeeper/internal/repository"
	"github.com/amirk1998/stockkeeper/internal/security"
	"github.com/amirk1998/stockkeeper/pkg/errors"
	"github.com/amirk1998/stockkeeper/pkg/validator"
)

// dummySalt is hashed against when the username does not exist so both
// failure paths do the same work.
const dummySalt = "0000000000000000"

type AuthService struct {
	userRepo    *repository.UserRepository
	tracker     *lockout.Tracker
	hasher      security.Hasher
	validator   *validator.Validator
	rateLimiter *ratelimit.RateLimiter
	auditLogger *audit.Logger
	monitor     *audit.Monitor
	log         logging.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo *repository.UserRepository,
	tracker *lockout.Tracker,
	hasher security.Hasher,
	rateLimiter *ratelimit.RateLimiter,
	auditLogger *audit.Logger,
	log logging.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tracker:     tracker,
		hasher:      hasher,
		validator:   validator.New(),
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
		monitor:     audit.NewMonitor(auditLogger),
		log:         log.With("component", "auth"),
	}
}

// Register registers a new user
func (s *AuthService) Register(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	// Rate limiting
	if err := s.rateLimiter.CheckLimit(ratelimit.Key("register")); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Action:   "REGISTER_RATE_LIMITED",
			Resource: "auth",
			Success:  false,
			ErrorMsg: "rate limit exceeded",
		})
		return nil, err
	}

	// Validate input
	req.Username = s.validator.SanitizeString(req.Username)

	if err := s.validator.ValidateUsername(req.Username); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Action:   "REGISTER_INVALID_USERNAME",
			Resource: "auth",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	if err := s.validator.ValidatePassword(req.Password); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: req.Username,
			Action:   "REGISTER_WEAK_PASSWORD",
			Resource: "auth",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	// Check if user already exists
	taken, err := s.userRepo.IsUsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: req.Username,
			Action:   "REGISTER_DUPLICATE_USERNAME",
			Resource: "auth",
			Success:  false,
			ErrorMsg: "username already exists",
		})
		return nil, errors.ErrUserAlreadyExists
	}

	salt, err := security.GenerateSalt(func(salt string) (bool, error) {
		return s.userRepo.IsSaltTaken(ctx, salt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// Hash password
	passwordHash, err := s.hasher.Hash(req.Password, salt)
	if err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelError,
			Username: req.Username,
			Action:   "REGISTER_HASH_FAILED",
			Resource: "auth",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Create user
	user := &models.User{
		Username:     req.Username,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelError,
			Username: req.Username,
			Action:   "REGISTER_STORAGE_ERROR",
			Resource: "auth",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	// Audit log
	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: user.Username,
		Action:   "REGISTER_SUCCESS",
		Resource: "auth",
		Success:  true,
	})
	s.log.Info(ctx, "user registered", "username", user.Username)

	return user, nil
}

// LockoutStatus reports whether login attempts are currently accepted.
// An expired lock is released as a side effect.
func (s *AuthService) LockoutStatus(ctx context.Context) (lockout.Status, error) {
	return s.tracker.Check(ctx)
}

// Login authenticates a user. Unknown usernames and wrong passwords count
// alike towards the lockout threshold. When this failure triggers the lock
// the returned error matches both ErrInvalidCredentials and ErrAccountLocked.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	// Rate limiting per username
	rateLimitKey := ratelimit.Key("login", req.Username)
	if err := s.rateLimiter.CheckLimit(rateLimitKey); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: req.Username,
			Action:   "LOGIN_RATE_LIMITED",
			Resource: "auth",
			Success:  false,
			ErrorMsg: "rate limit exceeded",
		})
		return nil, err
	}

	// Check if logins are locked
	status, err := s.tracker.Check(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check lock status: %w", err)
	}

	if status.State == lockout.Locked {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: req.Username,
			Action:   "LOGIN_LOCKED",
			Resource: "auth",
			Success:  false,
		})
		return nil, &errors.LockedError{Remaining: status.Remaining}
	}

	// Get user
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil && !stderrors.Is(err, errors.ErrUserNotFound) {
		return nil, err
	}

	if user == nil {
		// Hash anyway to keep both failure paths alike
		security.Verify(s.hasher, req.Password, dummySalt, "")

		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: req.Username,
			Action:   "LOGIN_USER_NOT_FOUND",
			Resource: "auth",
			Success:  false,
		})
		return nil, s.recordFailure(ctx, req.Username)
	}

	// Verify password
	valid, err := security.Verify(s.hasher, req.Password, user.Salt, user.PasswordHash)
	if err != nil && !stderrors.Is(err, errors.ErrInvalidInput) {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelError,
			Username: user.Username,
			Action:   "LOGIN_VERIFY_ERROR",
			Resource: "auth",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if !valid {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: user.Username,
			Action:   "LOGIN_INVALID_PASSWORD",
			Resource: "auth",
			Success:  false,
		})
		return nil, s.recordFailure(ctx, user.Username)
	}

	if err := s.tracker.RecordSuccess(ctx); err != nil {
		return nil, err
	}

	// Audit log
	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: user.Username,
		Action:   "LOGIN_SUCCESS",
		Resource: "auth",
		Success:  true,
	})
	s.log.Info(ctx, "user logged in", "username", user.Username)

	return &models.LoginResponse{User: user}, nil
}

// recordFailure advances the lockout tracker and builds the error returned
// to the caller.
func (s *AuthService) recordFailure(ctx context.Context, username string) error {
	status, err := s.tracker.RecordFailure(ctx)
	if err != nil {
		return stderrors.Join(errors.ErrInvalidCredentials, err)
	}

	if status.State != lockout.Locked {
		s.log.Warn(ctx, "failed login", "username", username, "attempts", status.FailedAttempts)
		return errors.ErrInvalidCredentials
	}

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelCritical,
		Username: username,
		Action:   "LOCKOUT_TRIGGERED",
		Resource: "auth",
		Success:  false,
		ErrorMsg: fmt.Sprintf("logins locked for %s after %d failed attempts",
			lockout.FormatWait(status.Remaining), status.FailedAttempts),
	})
	s.log.Warn(ctx, "login locked", "username", username, "remaining", status.Remaining)

	alerts, err := s.monitor.DetectFailedLogins()
	if err != nil {
		s.log.Error(ctx, "failed to scan audit log", "error", err)
	}
	for user, count := range alerts {
		s.log.Warn(ctx, "security alert: repeated failed logins", "username", user, "count", count)
	}

	return stderrors.Join(errors.ErrInvalidCredentials, &errors.LockedError{Remaining: status.Remaining})
}

// Logout forgets the per-user rate limiters.
func (s *AuthService) Logout(ctx context.Context, username string) {
	dropped := s.rateLimiter.ForgetUser(username)
	s.rateLimiter.Cleanup()

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: username,
		Action:   "LOGOUT",
		Resource: "auth",
		Success:  true,
	})
	s.log.Info(ctx, "user logged out", "username", username, "limiters_dropped", dropped)
}
