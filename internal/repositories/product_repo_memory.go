package repositories

import (
	"context"
	"fmt"
	"sync"

	"katalog/internal/models"

	"github.com/google/uuid"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Products are kept in insertion order.
type MemoryProductRepository struct {
	products []models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

// FindAll returns all products.
func (r *MemoryProductRepository) FindAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, len(r.products))
	copy(productList, r.products)
	return productList, nil
}

// FindByProductID returns a product by its product_id.
func (r *MemoryProductRepository) FindByProductID(_ context.Context, productID int64) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(productID)
	if i < 0 {
		return nil, fmt.Errorf("product with product_id %d: %w", productID, ErrProductNotFound)
	}
	product := r.products[i]
	return &product, nil
}

// Insert adds a new product.
func (r *MemoryProductRepository) Insert(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(product.ProductID) >= 0 {
		return fmt.Errorf("product with product_id %d: %w", product.ProductID, ErrDuplicateProductID)
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products = append(r.products, *product)
	return nil
}

// UpdateByProductID modifies an existing product.
func (r *MemoryProductRepository) UpdateByProductID(_ context.Context, productID int64, fields models.ProductFields) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(productID)
	if i < 0 {
		return nil, fmt.Errorf("product with product_id %d not found for update: %w", productID, ErrProductNotFound)
	}
	fields.Apply(&r.products[i])
	product := r.products[i]
	return &product, nil
}

// DeleteByProductID removes a product by its product_id.
func (r *MemoryProductRepository) DeleteByProductID(_ context.Context, productID int64) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(productID)
	if i < 0 {
		return nil, fmt.Errorf("product with product_id %d not found for deletion: %w", productID, ErrProductNotFound)
	}
	product := r.products[i]
	r.products = append(r.products[:i], r.products[i+1:]...)
	return &product, nil
}

// indexOf must be called with mu held.
func (r *MemoryProductRepository) indexOf(productID int64) int {
	for i := range r.products {
		if r.products[i].ProductID == productID {
			return i
		}
	}
	return -1
}
