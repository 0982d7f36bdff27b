package repositories

import (
	"context"
	"errors"
	"fmt"

	"katalog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// FindAll retrieves all products, oldest first.
func (r *GORMProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// FindByProductID retrieves a single product by its product_id.
func (r *GORMProductRepository) FindByProductID(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with product_id %d: %w", productID, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by product_id %d: %w", productID, err)
	}
	return &product, nil
}

// Insert creates a new product in the database.
func (r *GORMProductRepository) Insert(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("product with product_id %d: %w", product.ProductID, ErrDuplicateProductID)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateByProductID writes fields to the product with the given product_id
// and returns the updated record.
func (r *GORMProductRepository) UpdateByProductID(ctx context.Context, productID int64, fields models.ProductFields) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).Where("product_id = ?", productID).Updates(fields.Columns())
		if res.Error != nil {
			return fmt.Errorf("failed to update product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with product_id %d not found for update: %w", productID, ErrProductNotFound)
		}
		if err := tx.First(&product, "product_id = ?", productID).Error; err != nil {
			return fmt.Errorf("failed to reload product %d: %w", productID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteByProductID deletes the product with the given product_id and
// returns the removed record.
func (r *GORMProductRepository) DeleteByProductID(ctx context.Context, productID int64) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, "product_id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product with product_id %d not found for deletion: %w", productID, ErrProductNotFound)
			}
			return fmt.Errorf("failed to get product for deletion: %w", err)
		}
		res := tx.Delete(&models.Product{}, "id = ?", product.ID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with product_id %d not found for deletion: %w", productID, ErrProductNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}
