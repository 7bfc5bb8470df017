package service

import (
	"context"
	"fmt"
	"time"

	"github.com/amirk1998/stockkeeper/internal/audit"
	"github.com/amirk1998/stockkeeper/internal/logging"
	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/internal/ratelimit"
	"github.com/amirk1998/stockkeeper/internal/repository"
	"github.com/amirk1998/stockkeeper/pkg/errors"
	"github.com/amirk1998/stockkeeper/pkg/validator"
)

type ProductService struct {
	productRepo *repository.ProductRepository
	validator   *validator.Validator
	rateLimiter *ratelimit.RateLimiter
	auditLogger *audit.Logger
	log         logging.Logger
	now         func() time.Time
}

// NewProductService creates a new product service
func NewProductService(
	productRepo *repository.ProductRepository,
	rateLimiter *ratelimit.RateLimiter,
	auditLogger *audit.Logger,
	log logging.Logger,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		validator:   validator.New(),
		rateLimiter: rateLimiter,
		auditLogger: auditLogger,
		log:         log.With("component", "products"),
		now:         time.Now,
	}
}

func (s *ProductService) checkLimit(op, owner string) error {
	if err := s.rateLimiter.CheckLimit(ratelimit.Key("product", op, owner)); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_RATE_LIMITED",
			Resource: "products",
			Success:  false,
			Metadata: op,
		})
		return err
	}
	return nil
}

// validateFields checks every editable product field.
func (s *ProductService) validateFields(name, description string, price float64, quantity, threshold uint64) error {
	if err := s.validator.ValidateProductName(name); err != nil {
		return err
	}
	if err := s.validator.ValidateDescription(description); err != nil {
		return err
	}
	if err := s.validator.ValidateUnitPrice(price); err != nil {
		return err
	}
	if err := s.validator.ValidateQuantity(quantity); err != nil {
		return err
	}
	return s.validator.ValidateAlertThreshold(threshold, quantity)
}

// Add creates a new product owned by owner
func (s *ProductService) Add(ctx context.Context, owner string, req *models.CreateProductRequest) (*models.Product, error) {
	if err := s.checkLimit("add", owner); err != nil {
		return nil, err
	}

	// Validate input
	req.Name = s.validator.SanitizeString(req.Name)
	req.Description = s.validator.SanitizeString(req.Description)
	req.UnitPrice = validator.RoundCents(req.UnitPrice)

	if err := s.validateFields(req.Name, req.Description, req.UnitPrice, req.Quantity, req.AlertThreshold); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_ADD_INVALID_INPUT",
			Resource: "products",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	taken, err := s.productRepo.IsIdentityTaken(ctx, req.Name, owner)
	if err != nil {
		return nil, err
	}
	if taken {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_ADD_DUPLICATE_NAME",
			Resource: "products",
			Success:  false,
			Metadata: req.Name,
		})
		return nil, errors.ErrProductExists
	}

	id, err := s.productRepo.GenerateUniqueID(ctx)
	if err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelError,
			Username: owner,
			Action:   "PRODUCT_ADD_NO_ID",
			Resource: "products",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	today := models.DateOf(s.now())
	product := &models.Product{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		Owner:          owner,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		AlertThreshold: req.AlertThreshold,
		LastEntryDate:  today,
		LastExitDate:   today,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelError,
			Username: owner,
			Action:   "PRODUCT_ADD_STORAGE_ERROR",
			Resource: "products",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: owner,
		Action:   "PRODUCT_ADD_SUCCESS",
		Resource: fmt.Sprintf("product:%d", product.ID),
		Success:  true,
	})
	s.log.Info(ctx, "product added", "id", product.ID, "owner", owner)

	return product, nil
}

// Modify replaces the editable fields of the owner's product id. A rising
// quantity stamps the entry date, a falling one the exit date.
func (s *ProductService) Modify(ctx context.Context, owner string, id uint16, req *models.UpdateProductRequest) (*models.Product, error) {
	if err := s.checkLimit("modify", owner); err != nil {
		return nil, err
	}

	req.Name = s.validator.SanitizeString(req.Name)
	req.Description = s.validator.SanitizeString(req.Description)
	req.UnitPrice = validator.RoundCents(req.UnitPrice)

	if err := s.validateFields(req.Name, req.Description, req.UnitPrice, req.Quantity, req.AlertThreshold); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_MODIFY_INVALID_INPUT",
			Resource: fmt.Sprintf("product:%d", id),
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	// A rename must not collide with another of the owner's products
	sameName, err := s.productRepo.FindByName(ctx, req.Name, owner)
	if err != nil {
		return nil, err
	}
	for _, p := range sameName {
		if p.ID != id {
			s.auditLogger.Log(&audit.Event{
				Level:    audit.LevelWarning,
				Username: owner,
				Action:   "PRODUCT_MODIFY_DUPLICATE_NAME",
				Resource: fmt.Sprintf("product:%d", id),
				Success:  false,
				Metadata: req.Name,
			})
			return nil, errors.ErrProductExists
		}
	}

	today := models.DateOf(s.now())
	var updated models.Product
	err = s.productRepo.Update(ctx, id, owner, func(cur models.Product) (models.Product, error) {
		next := cur
		next.Name = req.Name
		next.Description = req.Description
		next.UnitPrice = req.UnitPrice
		next.Quantity = req.Quantity
		next.AlertThreshold = req.AlertThreshold

		switch {
		case req.Quantity > cur.Quantity:
			next.LastEntryDate = today
		case req.Quantity < cur.Quantity:
			next.LastExitDate = today
		}

		updated = next
		return next, nil
	})
	if err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_MODIFY_FAILED",
			Resource: fmt.Sprintf("product:%d", id),
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: owner,
		Action:   "PRODUCT_MODIFY_SUCCESS",
		Resource: fmt.Sprintf("product:%d", id),
		Success:  true,
	})
	s.log.Info(ctx, "product modified", "id", id, "owner", owner)

	return &updated, nil
}

// Delete removes the owner's product called name, ignoring case
func (s *ProductService) Delete(ctx context.Context, owner, name string) error {
	if err := s.checkLimit("delete", owner); err != nil {
		return err
	}

	name = s.validator.SanitizeString(name)
	if name == "" {
		return errors.Validation(errors.ErrInvalidInput, "product name is required")
	}

	removed, err := s.productRepo.DeleteByName(ctx, name, owner)
	if err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_DELETE_FAILED",
			Resource: "products",
			Success:  false,
			ErrorMsg: err.Error(),
			Metadata: name,
		})
		return err
	}

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: owner,
		Action:   "PRODUCT_DELETE_SUCCESS",
		Resource: "products",
		Success:  true,
		Metadata: name,
	})
	s.log.Info(ctx, "product deleted", "name", name, "owner", owner, "removed", removed)

	return nil
}

// Get returns the owner's product with the given id
func (s *ProductService) Get(ctx context.Context, owner string, id uint16) (*models.Product, error) {
	return s.productRepo.GetByID(ctx, id, owner)
}

// List returns the owner's products in stored order
func (s *ProductService) List(ctx context.Context, owner string) ([]models.Product, error) {
	return s.productRepo.ListByOwner(ctx, owner)
}

// Search finds the owner's products by name, ignoring case
func (s *ProductService) Search(ctx context.Context, owner, name string) ([]models.Product, error) {
	name = s.validator.SanitizeString(name)
	if name == "" {
		return nil, errors.Validation(errors.ErrInvalidInput, "product name is required")
	}

	products, err := s.productRepo.FindByName(ctx, name, owner)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, errors.ErrRecordNotFound
	}
	return products, nil
}

// Sort reorders the whole stock file by key and returns the owner's
// products in the new order.
func (s *ProductService) Sort(ctx context.Context, owner string, key models.SortKey) ([]models.Product, error) {
	if err := s.checkLimit("sort", owner); err != nil {
		return nil, err
	}

	if err := s.productRepo.Sort(ctx, key); err != nil {
		s.auditLogger.Log(&audit.Event{
			Level:    audit.LevelWarning,
			Username: owner,
			Action:   "PRODUCT_SORT_FAILED",
			Resource: "products",
			Success:  false,
			ErrorMsg: err.Error(),
		})
		return nil, err
	}

	s.auditLogger.Log(&audit.Event{
		Level:    audit.LevelInfo,
		Username: owner,
		Action:   "PRODUCT_SORT_SUCCESS",
		Resource: "products",
		Success:  true,
		Metadata: string(key),
	})
	s.log.Debug(ctx, "products sorted", "key", key)

	return s.productRepo.ListByOwner(ctx, owner)
}
