package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"katalog/internal/clock"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"
	"katalog/internal/validation"
	"katalog/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) FindByProductID(ctx context.Context, productID int64) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Insert(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateByProductID(ctx context.Context, productID int64, fields models.ProductFields) (*models.Product, error) {
	args := m.Called(ctx, productID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) DeleteByProductID(ctx context.Context, productID int64) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishProductEvent(event rabbitmq.ProductEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func notFound(productID int64) error {
	return fmt.Errorf("product with product_id %d: %w", productID, repositories.ErrProductNotFound)
}

func productPayload() map[string]any {
	return map[string]any{
		"product_id": json.Number("1"),
		"name":       "Product 1",
		"category":   "Category A",
		"price":      json.Number("10"),
		"stock":      json.Number("20"),
	}
}

func newService(repo *MockProductRepository, publisher services.EventPublisher) *services.ProductService {
	return services.NewProductService(repo, clock.NewMockClock(fixedNow), publisher, zap.NewNop())
}

func TestProductService_ListProducts(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo, nil)

	expectedProducts := []models.Product{
		{ID: "a", ProductID: 1, Name: "Product 1", Category: "Category A", Price: 10, Stock: 20},
		{ID: "b", ProductID: 2, Name: "Product 2", Category: "Category B", Price: 15, Stock: 25},
	}

	mockRepo.On("FindAll", ctx).Return(expectedProducts, nil).Once()
	products, err := service.ListProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)

	mockRepo.On("FindAll", ctx).Return(nil, errors.New("connection refused")).Once()
	_, err = service.ListProducts(ctx)
	assert.ErrorContains(t, err, "connection refused")
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := newService(mockRepo, nil)

	expectedProduct := &models.Product{ID: "a", ProductID: 1, Name: "Product 1"}

	// Test successful retrieval
	mockRepo.On("FindByProductID", ctx, int64(1)).Return(expectedProduct, nil).Once()
	product, err := service.GetProduct(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	// Test product not found
	mockRepo.On("FindByProductID", ctx, int64(3)).Return(nil, notFound(3)).Once()
	product, err = service.GetProduct(ctx, 3)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Nil(t, product)

	// Test store failure
	mockRepo.On("FindByProductID", ctx, int64(4)).Return(nil, errors.New("database error")).Once()
	_, err = service.GetProduct(ctx, 4)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, publisher)

	mockRepo.On("FindByProductID", ctx, int64(1)).Return(nil, notFound(1)).Once()
	mockRepo.On("Insert", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.ProductID == 1 && p.Name == "Product 1" && p.CreatedAt.Equal(fixedNow) && p.UpdatedAt == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Product).ID = "generated"
	}).Return(nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e rabbitmq.ProductEvent) bool {
		return e.Event == rabbitmq.EventProductCreated && e.ProductID == 1
	})).Return(nil).Once()

	product, err := service.CreateProduct(ctx, productPayload())
	require.NoError(t, err)
	assert.Equal(t, "generated", product.ID)
	assert.Equal(t, "Category A", product.Category)
	assert.Equal(t, 10.0, product.Price)
	assert.Equal(t, 20.0, product.Stock)
	assert.Equal(t, fixedNow, product.CreatedAt)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProductService_CreateProduct_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing payload", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		_, err := newService(mockRepo, nil).CreateProduct(ctx, map[string]any{})
		assert.ErrorIs(t, err, services.ErrProductDataMissing)

		_, err = newService(mockRepo, nil).CreateProduct(ctx, nil)
		assert.ErrorIs(t, err, services.ErrProductDataMissing)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("invalid payload", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		payload := productPayload()
		payload["name"] = "Short"

		_, err := newService(mockRepo, nil).CreateProduct(ctx, payload)
		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{`"name" length must be at least 8 characters long`}, verr.Messages)
		mockRepo.AssertNotCalled(t, "FindByProductID", mock.Anything, mock.Anything)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("duplicate product_id", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		mockRepo.On("FindByProductID", ctx, int64(1)).Return(&models.Product{ProductID: 1}, nil).Once()

		_, err := newService(mockRepo, nil).CreateProduct(ctx, productPayload())
		assert.ErrorIs(t, err, services.ErrProductIDExists)
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("duplicate detected by store", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		mockRepo.On("FindByProductID", ctx, int64(1)).Return(nil, notFound(1)).Once()
		mockRepo.On("Insert", ctx, mock.Anything).Return(fmt.Errorf("insert: %w", repositories.ErrDuplicateProductID)).Once()

		_, err := newService(mockRepo, nil).CreateProduct(ctx, productPayload())
		assert.ErrorIs(t, err, services.ErrProductIDExists)
		mockRepo.AssertExpectations(t)
	})

	t.Run("lookup failure", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		mockRepo.On("FindByProductID", ctx, int64(1)).Return(nil, errors.New("database error")).Once()

		_, err := newService(mockRepo, nil).CreateProduct(ctx, productPayload())
		assert.ErrorContains(t, err, "database error")
		mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})
}

func TestProductService_CreateProduct_PublishFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, publisher)

	mockRepo.On("FindByProductID", ctx, int64(1)).Return(nil, notFound(1)).Once()
	mockRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
	publisher.On("PublishProductEvent", mock.Anything).Return(errors.New("broker down")).Once()

	product, err := service.CreateProduct(ctx, productPayload())
	assert.NoError(t, err)
	assert.NotNil(t, product)
	publisher.AssertExpectations(t)
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, publisher)

	payload := productPayload()
	payload["name"] = "Product 1 Updated"
	payload["price"] = json.Number("12")

	expectedFields := models.ProductFields{
		Name:      "Product 1 Updated",
		Category:  "Category A",
		Price:     12,
		Stock:     20,
		UpdatedAt: fixedNow,
	}
	updated := &models.Product{ID: "a", ProductID: 1, Name: "Product 1 Updated", Category: "Category A", Price: 12, Stock: 20, UpdatedAt: &fixedNow}

	mockRepo.On("UpdateByProductID", ctx, int64(1), expectedFields).Return(updated, nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e rabbitmq.ProductEvent) bool {
		return e.Event == rabbitmq.EventProductUpdated && e.Product != nil && e.Product.Name == "Product 1 Updated"
	})).Return(nil).Once()

	product, err := service.UpdateProduct(ctx, 1, payload)
	require.NoError(t, err)
	assert.Equal(t, updated, product)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestProductService_UpdateProduct_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("partial payload", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		_, err := newService(mockRepo, nil).UpdateProduct(ctx, 1, map[string]any{"stock": json.Number("5")})

		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Messages, `"product_id" is required`)
		mockRepo.AssertNotCalled(t, "UpdateByProductID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("changed product_id", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		payload := productPayload()
		payload["product_id"] = json.Number("2")

		_, err := newService(mockRepo, nil).UpdateProduct(ctx, 1, payload)
		var verr *validation.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{`"product_id" cannot be changed`}, verr.Messages)
		mockRepo.AssertNotCalled(t, "UpdateByProductID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		mockRepo := new(MockProductRepository)
		mockRepo.On("UpdateByProductID", ctx, int64(1), mock.Anything).Return(nil, notFound(1)).Once()

		_, err := newService(mockRepo, nil).UpdateProduct(ctx, 1, productPayload())
		assert.ErrorIs(t, err, services.ErrProductNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	publisher := new(MockPublisher)
	service := newService(mockRepo, publisher)

	// Test successful deletion
	mockRepo.On("DeleteByProductID", ctx, int64(1)).Return(&models.Product{ProductID: 1}, nil).Once()
	publisher.On("PublishProductEvent", mock.MatchedBy(func(e rabbitmq.ProductEvent) bool {
		return e.Event == rabbitmq.EventProductDeleted && e.ProductID == 1 && e.Product == nil
	})).Return(nil).Once()
	product, err := service.DeleteProduct(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), product.ProductID)

	// Test deletion failure (product not found)
	mockRepo.On("DeleteByProductID", ctx, int64(99)).Return(nil, notFound(99)).Once()
	_, err = service.DeleteProduct(ctx, 99)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}
