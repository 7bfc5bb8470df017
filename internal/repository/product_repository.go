package repository

import (
	"cmp"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/amirk1998/stockkeeper/internal/csvstore"
	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	// MaxProductID is the upper bound of the id space; 0 is never assigned.
	MaxProductID = 65535

	randomIDAttempts = 64
)

// ProductRepository stores products in the stock file.
type ProductRepository struct {
	store *csvstore.Store[models.Product]
	maxID uint16
}

// NewProductRepository creates a product repository over the stock file
func NewProductRepository(path string) *ProductRepository {
	return &ProductRepository{
		store: csvstore.New[models.Product](path, productCodec{}),
		maxID: MaxProductID,
	}
}

// Path returns the stock file location.
func (r *ProductRepository) Path() string {
	return r.store.Path()
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Create appends a product. The caller assigns the id.
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.store.Append(ctx, *product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// IsIdentityTaken reports whether owner already has a product with this
// name, ignoring case.
func (r *ProductRepository) IsIdentityTaken(ctx context.Context, name, owner string) (bool, error) {
	taken, err := r.store.Exists(ctx, func(p models.Product) bool {
		return p.Owner == owner && sameName(p.Name, name)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check product name: %w", err)
	}
	return taken, nil
}

func (r *ProductRepository) IsIDTaken(ctx context.Context, id uint16) (bool, error) {
	taken, err := r.store.Exists(ctx, func(p models.Product) bool {
		return p.ID == id
	})
	if err != nil {
		return false, fmt.Errorf("failed to check product id: %w", err)
	}
	return taken, nil
}

// GenerateUniqueID picks an unused id in 1..maxID. It reads the store once,
// tries a bounded number of random candidates and then falls back to the
// lowest free id.
func (r *ProductRepository) GenerateUniqueID(ctx context.Context) (uint16, error) {
	taken := make(map[uint16]struct{})
	err := r.store.Scan(ctx, func(p models.Product) bool {
		taken[p.ID] = struct{}{}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to generate product id: %w", err)
	}

	if len(taken) < int(r.maxID) {
		upper := big.NewInt(int64(r.maxID))
		for range randomIDAttempts {
			n, err := rand.Int(rand.Reader, upper)
			if err != nil {
				break
			}
			id := uint16(n.Int64() + 1)
			if _, ok := taken[id]; !ok {
				return id, nil
			}
		}

		for id := 1; id <= int(r.maxID); id++ {
			if _, ok := taken[uint16(id)]; !ok {
				return uint16(id), nil
			}
		}
	}

	return 0, errors.ErrIDSpaceExhausted
}

// GetByID returns the owner's product with the given id
func (r *ProductRepository) GetByID(ctx context.Context, id uint16, owner string) (*models.Product, error) {
	var found *models.Product
	err := r.store.Scan(ctx, func(p models.Product) bool {
		if p.ID == id && p.Owner == owner {
			found = &p
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if found == nil {
		return nil, errors.ErrRecordNotFound
	}
	return found, nil
}

// FindByName returns the owner's products whose name matches, ignoring case
func (r *ProductRepository) FindByName(ctx context.Context, name, owner string) ([]models.Product, error) {
	var products []models.Product
	err := r.store.Scan(ctx, func(p models.Product) bool {
		if p.Owner == owner && sameName(p.Name, name) {
			products = append(products, p)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// ListByOwner returns the owner's products in file order
func (r *ProductRepository) ListByOwner(ctx context.Context, owner string) ([]models.Product, error) {
	var products []models.Product
	err := r.store.Scan(ctx, func(p models.Product) bool {
		if p.Owner == owner {
			products = append(products, p)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Update rewrites the owner's product with the given id through update.
// Returns ErrRecordNotFound when no such product exists.
func (r *ProductRepository) Update(ctx context.Context, id uint16, owner string, update func(models.Product) (models.Product, error)) error {
	updated, err := r.store.RewriteWithUpdate(ctx,
		func(p models.Product) bool { return p.ID == id && p.Owner == owner },
		func(p models.Product) (models.Product, error) {
			next, err := update(p)
			if err != nil {
				return models.Product{}, err
			}
			next.ID, next.Owner = p.ID, p.Owner
			return next, nil
		})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if updated == 0 {
		return errors.ErrRecordNotFound
	}
	return nil
}

// DeleteByName removes every product of owner matching name, ignoring case.
// The stock file is left untouched when nothing matches.
func (r *ProductRepository) DeleteByName(ctx context.Context, name, owner string) (int, error) {
	removed, err := r.store.RewriteExcept(ctx, func(p models.Product) bool {
		return p.Owner == owner && sameName(p.Name, name)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete product: %w", err)
	}
	if removed == 0 {
		return 0, errors.ErrRecordNotFound
	}
	return removed, nil
}

// Sort reorders the whole stock file by key.
func (r *ProductRepository) Sort(ctx context.Context, key models.SortKey) error {
	var less func(a, b models.Product) int
	switch key {
	case models.SortByName:
		less = compareByName
	case models.SortByPrice:
		less = func(a, b models.Product) int {
			if c := cmp.Compare(a.UnitPrice, b.UnitPrice); c != 0 {
				return c
			}
			return compareByName(a, b)
		}
	default:
		return errors.Validation(errors.ErrInvalidInput, "unknown sort key %q", key)
	}

	if err := r.store.RewriteSorted(ctx, less); err != nil {
		return fmt.Errorf("failed to sort products: %w", err)
	}
	return nil
}

func compareByName(a, b models.Product) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
