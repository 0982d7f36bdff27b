package repositories

import (
	"context"
	"errors"

	"katalog/internal/models"
)

var (
	// ErrProductNotFound is returned when no product matches a product_id.
	ErrProductNotFound = errors.New("product not found")
	// ErrDuplicateProductID is returned when an insert violates product_id uniqueness.
	ErrDuplicateProductID = errors.New("duplicate product_id")
)

// ProductRepository defines the interface for product data access.
// Products are addressed by their external product_id, never by the storage key.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]models.Product, error)
	FindByProductID(ctx context.Context, productID int64) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	UpdateByProductID(ctx context.Context, productID int64, fields models.ProductFields) (*models.Product, error)
	DeleteByProductID(ctx context.Context, productID int64) (*models.Product, error)
}
