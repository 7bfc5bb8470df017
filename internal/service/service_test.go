package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/lockout"
	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/internal/ratelimit"
	"github.com/amirk1998/stockkeeper/internal/repository"
	"github.com/amirk1998/stockkeeper/internal/security"
)

type env struct {
	dir      string
	now      time.Time
	users    *repository.UserRepository
	products *repository.ProductRepository
	audit    *audit.Logger
	auth     *AuthService
	product  *ProductService
}

func (e *env) clock() time.Time { return e.now }

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	e := &env{
		dir:      dir,
		now:      time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		users:    repository.NewUserRepository(filepath.Join(dir, "users.csv")),
		products: repository.NewProductRepository(filepath.Join(dir, "stock.csv")),
	}

	auditLogger, err := audit.NewLogger(filepath.Join(dir, "logs", "audit.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditLogger.Close() })
	e.audit = auditLogger

	limiter := ratelimit.NewRateLimiter(1000, 1000)
	tracker := lockout.New(repository.NewLockoutRepository(filepath.Join(dir, "lockout.csv")), lockout.WithClock(e.clock))

	e.auth = NewAuthService(e.users, tracker, security.SHA256Hasher{}, limiter, auditLogger, logging.NewNop())
	e.product = NewProductService(e.products, limiter, auditLogger, logging.NewNop())
	e.product.now = e.clock
	return e
}
