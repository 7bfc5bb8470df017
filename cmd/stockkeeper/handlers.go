package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/cli"
	"github.com/amirk1998/stockkeeper/internal/lockout"
	"github.com/amirk1998/stockkeeper/internal/models"
	apperrors "github.com/amirk1998/stockkeeper/pkg/errors"
)

const activityLogLimit = 20

func (app *Application) handleRegister(ctx context.Context) error {
	app.out.Title("=== Sign Up ===")

	username, err := app.prompt.Ask("Username", app.validator.ValidateUsername)
	if err != nil {
		return err
	}

	password, err := app.askNewPassword()
	if err != nil {
		return err
	}

	user, err := app.authService.Register(ctx, &models.CreateUserRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		app.out.Failure("register", err)
		return nil
	}

	app.out.Success("User %s registered successfully", user.Username)
	return nil
}

// askNewPassword reads a password twice until it is valid and both
// entries match.
func (app *Application) askNewPassword() (string, error) {
	for {
		password, err := app.prompt.Password("Password")
		if err != nil {
			return "", err
		}
		if err := app.validator.ValidatePassword(password); err != nil {
			app.out.Warn("%s", cli.Message(err))
			continue
		}

		confirm, err := app.prompt.Password("Confirm password")
		if err != nil {
			return "", err
		}
		if confirm != password {
			app.out.Warn("Passwords do not match")
			continue
		}
		return password, nil
	}
}

func (app *Application) handleLogin(ctx context.Context) error {
	app.out.Title("=== Login ===")

	status, err := app.authService.LockoutStatus(ctx)
	if err != nil {
		app.out.Failure("check login lock", err)
		return nil
	}
	if status.State == lockout.Locked {
		app.out.Error("Too many failed login attempts. Try again in %s", lockout.FormatWait(status.Remaining))
		return nil
	}

	username, err := app.prompt.Text("Username")
	if err != nil {
		return err
	}
	password, err := app.prompt.Password("Password")
	if err != nil {
		return err
	}

	resp, err := app.authService.Login(ctx, &models.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		app.reportLoginFailure(err)
		return nil
	}

	app.currentUser = resp.User
	app.out.Success("Welcome, %s!", resp.User.Username)
	return nil
}

func (app *Application) reportLoginFailure(err error) {
	var locked *apperrors.LockedError
	isLocked := stderrors.As(err, &locked)

	switch {
	case stderrors.Is(err, apperrors.ErrInvalidCredentials):
		app.out.Error("Invalid username or password")
	case !isLocked:
		app.out.Failure("login", err)
	}

	if isLocked {
		app.out.Error("Too many failed login attempts. Try again in %s", lockout.FormatWait(locked.Remaining))
	}
}

func (app *Application) handleLogout(ctx context.Context) {
	app.authService.Logout(ctx, app.currentUser.Username)
	app.currentUser = nil
	app.out.Success("Logged out successfully")
}

func (app *Application) handleViewProfile(ctx context.Context) error {
	products, err := app.productService.List(ctx, app.currentUser.Username)
	if err != nil {
		app.out.Failure("load products", err)
		return nil
	}

	low := 0
	for _, p := range products {
		if p.LowStock() {
			low++
		}
	}

	app.out.Title("=== Profile ===")
	app.out.Printf("Username:  %s\n", app.currentUser.Username)
	app.out.Printf("Products:  %d\n", len(products))
	app.out.Printf("Low stock: %d\n", low)
	return nil
}

// askProductFields prompts for every editable product field.
func (app *Application) askProductFields() (*models.CreateProductRequest, error) {
	name, err := app.prompt.Ask("Name", app.validator.ValidateProductName)
	if err != nil {
		return nil, err
	}
	description, err := app.prompt.Ask("Description", app.validator.ValidateDescription)
	if err != nil {
		return nil, err
	}

	req := &models.CreateProductRequest{Name: name, Description: description}

	if _, err := app.prompt.Ask("Unit price ($)", func(s string) (err error) {
		req.UnitPrice, err = app.validator.ParseUnitPrice(s)
		return err
	}); err != nil {
		return nil, err
	}

	if _, err := app.prompt.Ask("Quantity", func(s string) (err error) {
		req.Quantity, err = app.validator.ParseCount(s)
		return err
	}); err != nil {
		return nil, err
	}

	if _, err := app.prompt.Ask("Alert threshold", func(s string) (err error) {
		if req.AlertThreshold, err = app.validator.ParseCount(s); err != nil {
			return err
		}
		return app.validator.ValidateAlertThreshold(req.AlertThreshold, req.Quantity)
	}); err != nil {
		return nil, err
	}

	return req, nil
}

func (app *Application) askProductID() (uint16, error) {
	var id uint16
	_, err := app.prompt.Ask("Product ID", func(s string) error {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil || n == 0 {
			return apperrors.Validation(apperrors.ErrInvalidInput, "please enter an id between 1 and 65535")
		}
		id = uint16(n)
		return nil
	})
	return id, err
}

func (app *Application) handleAddProduct(ctx context.Context) error {
	app.out.Title("=== Add Product ===")

	req, err := app.askProductFields()
	if err != nil {
		return err
	}

	product, err := app.productService.Add(ctx, app.currentUser.Username, req)
	if err != nil {
		app.out.Failure("add product", err)
		return nil
	}

	app.out.Success("Product %s added with ID %d", product.Name, product.ID)
	return nil
}

func (app *Application) handleModifyProduct(ctx context.Context) error {
	app.out.Title("=== Modify Product ===")

	id, err := app.askProductID()
	if err != nil {
		return err
	}

	current, err := app.productService.Get(ctx, app.currentUser.Username, id)
	if err != nil {
		app.out.Failure("find product", err)
		return nil
	}
	app.out.Products([]models.Product{*current})

	req, err := app.askProductFields()
	if err != nil {
		return err
	}

	updated, err := app.productService.Modify(ctx, app.currentUser.Username, id, (*models.UpdateProductRequest)(req))
	if err != nil {
		app.out.Failure("modify product", err)
		return nil
	}

	app.out.Success("Product %d updated successfully", updated.ID)
	return nil
}

func (app *Application) handleDeleteProduct(ctx context.Context) error {
	app.out.Title("=== Delete Product ===")

	name, err := app.prompt.Text("Product name")
	if err != nil {
		return err
	}

	ok, err := app.prompt.Confirm(fmt.Sprintf("Delete %q?", name))
	if err != nil {
		return err
	}
	if !ok {
		app.out.Println("Cancelled")
		return nil
	}

	if err := app.productService.Delete(ctx, app.currentUser.Username, name); err != nil {
		app.out.Failure("delete product", err)
		return nil
	}

	app.out.Success("Product %s deleted successfully", name)
	return nil
}

func (app *Application) handleListProducts(ctx context.Context) error {
	app.out.Title("=== Your Products ===")

	products, err := app.productService.List(ctx, app.currentUser.Username)
	if err != nil {
		app.out.Failure("list products", err)
		return nil
	}

	app.out.Products(products)
	return nil
}

func (app *Application) handleSearchProduct(ctx context.Context) error {
	app.out.Title("=== Search Product ===")

	name, err := app.prompt.Text("Product name")
	if err != nil {
		return err
	}

	products, err := app.productService.Search(ctx, app.currentUser.Username, name)
	if stderrors.Is(err, apperrors.ErrRecordNotFound) {
		app.out.Warn("No product named %q", name)
		return nil
	}
	if err != nil {
		app.out.Failure("search products", err)
		return nil
	}

	app.out.Products(products)
	return nil
}

func (app *Application) handleSortProducts(ctx context.Context) error {
	app.out.Title("=== Sort Products ===")

	var key models.SortKey
	if _, err := app.prompt.Ask("Sort by (1) name or (2) price", func(s string) error {
		switch s {
		case "1", string(models.SortByName):
			key = models.SortByName
		case "2", string(models.SortByPrice):
			key = models.SortByPrice
		default:
			return apperrors.Validation(apperrors.ErrInvalidInput, "please enter 1 or 2")
		}
		return nil
	}); err != nil {
		return err
	}

	products, err := app.productService.Sort(ctx, app.currentUser.Username, key)
	if err != nil {
		app.out.Failure("sort products", err)
		return nil
	}

	app.out.Products(products)
	return nil
}

func (app *Application) handleCreateBackup(ctx context.Context) error {
	app.out.Title("=== Create Backup ===")

	backupPath, err := app.backupMgr.CreateBackup(ctx)
	if err != nil {
		app.auditBackup("BACKUP_CREATE_FAILED", "", err)
		app.out.Failure("create backup", err)
		return nil
	}

	if err := app.backupMgr.VerifyBackup(backupPath); err != nil {
		app.auditBackup("BACKUP_VERIFY_FAILED", backupPath, err)
		app.out.Failure("verify backup", err)
		return nil
	}
	app.auditBackup("BACKUP_CREATE_SUCCESS", backupPath, nil)

	app.out.Success("Backup created: %s", backupPath)
	app.out.Success("Backup verified successfully")

	removed, err := app.backupMgr.CleanOldBackups(ctx)
	if err != nil {
		app.out.Failure("clean old backups", err)
		return nil
	}
	if removed > 0 {
		app.out.Printf("Removed %d expired backup files\n", removed)
	}
	return nil
}

func (app *Application) handleRestoreBackup(ctx context.Context) error {
	app.out.Title("=== Restore Backup ===")

	backups, err := app.backupMgr.ListBackups()
	if err != nil {
		app.out.Failure("list backups", err)
		return nil
	}
	if len(backups) == 0 {
		app.out.Warn("No backups found")
		return nil
	}

	for i, b := range backups {
		app.out.Printf("%d. %s\n", i+1, filepath.Base(b))
	}

	var backupPath string
	if _, err := app.prompt.Ask("Backup number", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(backups) {
			return apperrors.Validation(apperrors.ErrInvalidInput, "please enter a number between 1 and %d", len(backups))
		}
		backupPath = backups[n-1]
		return nil
	}); err != nil {
		return err
	}

	ok, err := app.prompt.Confirm("Restoring overwrites all current data. Continue?")
	if err != nil {
		return err
	}
	if !ok {
		app.out.Println("Cancelled")
		return nil
	}

	restored, err := app.backupMgr.RestoreBackup(ctx, backupPath)
	if err != nil {
		app.auditBackup("BACKUP_RESTORE_FAILED", backupPath, err)
		app.out.Failure("restore backup", err)
		return nil
	}
	app.auditBackup("BACKUP_RESTORE_SUCCESS", backupPath, nil)

	app.out.Success("Restored %d files from %s", restored, filepath.Base(backupPath))

	// The restored user list may no longer contain the current user
	app.handleLogout(ctx)
	app.out.Warn("Please log in again")
	return nil
}

func (app *Application) auditBackup(action, path string, err error) {
	event := &audit.Event{
		Level:    audit.LevelInfo,
		Username: app.currentUser.Username,
		Action:   action,
		Resource: "backup:" + filepath.Base(path),
		Success:  err == nil,
	}
	if err != nil {
		event.Level = audit.LevelError
		event.ErrorMsg = err.Error()
	}
	app.auditLogger.Log(event)
}

func (app *Application) handleViewAuditLogs(ctx context.Context) error {
	app.out.Title("=== Activity Log ===")

	events, err := app.auditLogger.QueryLogs(audit.QueryFilters{
		Username: app.currentUser.Username,
		Limit:    activityLogLimit,
	})
	if err != nil {
		app.out.Failure("retrieve activity log", err)
		return nil
	}

	app.out.Events(events)
	return nil
}
