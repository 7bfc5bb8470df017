package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/backup"
	"github.com/amirk1998/stockkeeper/internal/cli"
	"github.com/amirk1998/stockkeeper/internal/config"
	"github.com/amirk1998/stockkeeper/internal/lockout"
	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/internal/ratelimit"
	"github.com/amirk1998/stockkeeper/internal/repository"
	"github.com/amirk1998/stockkeeper/internal/security"
	"github.com/amirk1998/stockkeeper/internal/service"
	"github.com/amirk1998/stockkeeper/pkg/validator"
)

// errQuit ends the menu loop.
var errQuit = stderrors.New("quit")

type Application struct {
	config         *config.Config
	log            logging.Logger
	authService    *service.AuthService
	productService *service.ProductService
	auditLogger    *audit.Logger
	backupMgr      *backup.Manager
	validator      *validator.Validator
	prompt         *cli.Prompter
	out            *cli.Printer
	currentUser    *models.User
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logOut, closeLog, err := openLogOutput(cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer closeLog()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.out.Title("Stock Keeper")
	app.out.Println()

	app.runCLI(ctx)
}

// openLogOutput opens the diagnostics sink. "-" and "" select stderr.
func openLogOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stderr, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// initializeApplication sets up all application components
func initializeApplication(cfg *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*Application, error) {
	hasher, err := security.NewHasher(cfg.PasswordHash)
	if err != nil {
		return nil, err
	}

	// Initialize audit logger
	auditLogger, err := audit.NewLogger(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Initialize repositories
	userRepo := repository.NewUserRepository(cfg.UsersFile)
	productRepo := repository.NewProductRepository(cfg.StockFile)

	tracker := lockout.New(
		repository.NewLockoutRepository(cfg.LockoutFile),
		lockout.WithThreshold(uint(cfg.LockoutThreshold)),
		lockout.WithInitialDuration(time.Duration(cfg.LockoutInitialSeconds)*time.Second),
	)

	// Initialize backup manager
	backupMgr, err := backup.NewManager(
		cfg.DataFiles(),
		cfg.BackupDir,
		cfg.BackupEncryptionKey,
		cfg.BackupRetentionDays,
		logger.With("component", "backup"),
	)
	if err != nil {
		auditLogger.Close()
		return nil, fmt.Errorf("failed to initialize backup manager: %w", err)
	}

	return &Application{
		config:         cfg,
		log:            logger,
		authService:    service.NewAuthService(userRepo, tracker, hasher, rateLimiter, auditLogger, logger),
		productService: service.NewProductService(productRepo, rateLimiter, auditLogger, logger),
		auditLogger:    auditLogger,
		backupMgr:      backupMgr,
		validator:      validator.New(),
		prompt:         cli.NewPrompter(in, out),
		out:            cli.NewPrinter(out),
	}, nil
}

// cleanup releases resources
func (app *Application) cleanup() {
	if app.auditLogger != nil {
		if err := app.auditLogger.Close(); err != nil {
			app.log.Error(context.Background(), "failed to close audit logger", "error", err)
		}
	}
}

// runCLI runs the menu loop until the user exits, input ends or ctx is
// cancelled.
func (app *Application) runCLI(ctx context.Context) {
	for ctx.Err() == nil {
		if app.currentUser == nil {
			app.showAuthMenu()
		} else {
			app.showMainMenu()
		}

		choice, err := app.prompt.Text("Choose an option")
		if err != nil {
			break
		}

		if app.currentUser == nil {
			err = app.handleAuthChoice(ctx, choice)
		} else {
			err = app.handleMainChoice(ctx, choice)
		}
		if err != nil {
			if !stderrors.Is(err, errQuit) {
				app.log.Debug(ctx, "input closed", "error", err)
			}
			break
		}
		app.out.Println()
	}

	if app.currentUser != nil {
		app.authService.Logout(context.Background(), app.currentUser.Username)
	}
	app.out.Println("Goodbye!")
}

func (app *Application) showAuthMenu() {
	app.out.Title("=== Main Menu ===")
	app.out.Println("1. Sign Up")
	app.out.Println("2. Login")
	app.out.Println("3. Exit")
}

func (app *Application) showMainMenu() {
	app.out.Title(fmt.Sprintf("=== Logged in as %s ===", app.currentUser.Username))
	app.out.Println("1. View Profile")
	app.out.Println("2. Add Product")
	app.out.Println("3. Modify Product")
	app.out.Println("4. Delete Product")
	app.out.Println("5. View Products")
	app.out.Println("6. Search Product")
	app.out.Println("7. Sort Products")
	app.out.Println("8. Create Backup")
	app.out.Println("9. Restore Backup")
	app.out.Println("10. View Activity Log")
	app.out.Println("11. Logout")
	app.out.Println("0. Exit")
}

func (app *Application) handleAuthChoice(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		return app.handleRegister(ctx)
	case "2":
		return app.handleLogin(ctx)
	case "3":
		return errQuit
	default:
		app.out.Warn("Invalid option")
	}
	return nil
}

func (app *Application) handleMainChoice(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		return app.handleViewProfile(ctx)
	case "2":
		return app.handleAddProduct(ctx)
	case "3":
		return app.handleModifyProduct(ctx)
	case "4":
		return app.handleDeleteProduct(ctx)
	case "5":
		return app.handleListProducts(ctx)
	case "6":
		return app.handleSearchProduct(ctx)
	case "7":
		return app.handleSortProducts(ctx)
	case "8":
		return app.handleCreateBackup(ctx)
	case "9":
		return app.handleRestoreBackup(ctx)
	case "10":
		return app.handleViewAuditLogs(ctx)
	case "11":
		app.handleLogout(ctx)
	case "0":
		return errQuit
	default:
		app.out.Warn("Invalid option")
	}
	return nil
}
