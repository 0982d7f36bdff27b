package services

import (
	"context"
	"errors"
	"fmt"

	"katalog/internal/clock"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/validation"
	"katalog/pkg/rabbitmq"

	"go.uber.org/zap"
)

var (
	// ErrProductNotFound is returned when no product matches the requested product_id.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductDataMissing is returned when a create request carries no payload.
	ErrProductDataMissing = errors.New("product data is missing")
	// ErrProductIDExists is returned when a product_id is already taken.
	ErrProductIDExists = errors.New("product ID already exists")
)

// EventPublisher publishes product lifecycle events.
type EventPublisher interface {
	PublishProductEvent(event rabbitmq.ProductEvent) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	validator *validation.ProductValidator
	clock     clock.Clock
	publisher EventPublisher
	log       *zap.Logger
}

// NewProductService creates a new ProductService. publisher may be nil, in
// which case no events are published.
func NewProductService(repo repositories.ProductRepository, clk clock.Clock, publisher EventPublisher, log *zap.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		validator: validation.NewProductValidator(),
		clock:     clk,
		publisher: publisher,
		log:       log,
	}
}

// ListProducts retrieves all products.
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a single product by its product_id.
func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return product, nil
}

// CreateProduct validates payload and stores it as a new product.
func (s *ProductService) CreateProduct(ctx context.Context, payload map[string]any) (*models.Product, error) {
	if len(payload) == 0 {
		return nil, ErrProductDataMissing
	}

	input, err := s.validator.Validate(payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByProductID(ctx, input.ProductID)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("product_id %d: %w", input.ProductID, ErrProductIDExists)
	case err != nil && !errors.Is(err, repositories.ErrProductNotFound):
		return nil, fmt.Errorf("failed to check product_id %d: %w", input.ProductID, err)
	}

	product := &models.Product{
		ProductID: input.ProductID,
		Name:      input.Name,
		Category:  input.Category,
		Price:     input.Price,
		Stock:     input.Stock,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, product); err != nil {
		// Lost a race against a concurrent create with the same product_id.
		if errors.Is(err, repositories.ErrDuplicateProductID) {
			return nil, fmt.Errorf("product_id %d: %w", input.ProductID, ErrProductIDExists)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.publish(rabbitmq.EventProductCreated, *product)
	return product, nil
}

// UpdateProduct replaces the fields of the product identified by productID.
// The payload must satisfy the full product schema and may not change the
// product_id.
func (s *ProductService) UpdateProduct(ctx context.Context, productID int64, payload map[string]any) (*models.Product, error) {
	input, err := s.validator.Validate(payload)
	if err != nil {
		return nil, err
	}
	if input.ProductID != productID {
		return nil, &validation.Error{Messages: []string{`"product_id" cannot be changed`}}
	}

	product, err := s.repo.UpdateByProductID(ctx, productID, models.ProductFields{
		Name:      input.Name,
		Category:  input.Category,
		Price:     input.Price,
		Stock:     input.Stock,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	s.publish(rabbitmq.EventProductUpdated, *product)
	return product, nil
}

// DeleteProduct removes the product identified by productID and returns it.
func (s *ProductService) DeleteProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.repo.DeleteByProductID(ctx, productID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	s.publish(rabbitmq.EventProductDeleted, *product)
	return product, nil
}

func (s *ProductService) mapNotFound(err error) error {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return fmt.Errorf("%w: %w", ErrProductNotFound, err)
	}
	return err
}

// publish never fails the calling operation; errors are only logged.
func (s *ProductService) publish(kind string, product models.Product) {
	if s.publisher == nil {
		return
	}
	event := rabbitmq.NewProductEvent(kind, product, s.clock.Now())
	if err := s.publisher.PublishProductEvent(event); err != nil {
		s.log.Warn("Failed to publish product event",
			zap.String("event", kind),
			zap.Int64("product_id", product.ProductID),
			zap.Error(err))
	}
}
