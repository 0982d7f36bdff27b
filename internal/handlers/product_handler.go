package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"katalog/internal/metrics"
	"katalog/internal/middleware"
	"katalog/internal/services"
	"katalog/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var errInvalidBody = errors.New("request body is not a JSON object")

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, m *metrics.Metrics, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		metrics: m,
		log:     log,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Patch("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts retrieves all products.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return h.fail(c, "list", err)
	}
	h.metrics.RecordProductOperation("list", metrics.OutcomeSuccess)
	return c.Status(fiber.StatusOK).JSON(products)
}

// HandleGetProduct retrieves a single product by its product_id.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return h.fail(c, "get", services.ErrProductNotFound)
	}

	product, err := h.service.GetProduct(c.UserContext(), productID)
	if err != nil {
		return h.fail(c, "get", err)
	}
	h.metrics.RecordProductOperation("get", metrics.OutcomeSuccess)
	return c.Status(fiber.StatusOK).JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	payload, err := decodePayload(c.Body())
	if err != nil {
		return h.fail(c, "create", err)
	}

	product, err := h.service.CreateProduct(c.UserContext(), payload)
	if err != nil {
		return h.fail(c, "create", err)
	}

	h.log.Info("Product created",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Int64("product_id", product.ProductID))
	h.metrics.RecordProductOperation("create", metrics.OutcomeSuccess)
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the fields of an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return h.fail(c, "update", services.ErrProductNotFound)
	}

	payload, err := decodePayload(c.Body())
	if err != nil {
		return h.fail(c, "update", err)
	}

	product, err := h.service.UpdateProduct(c.UserContext(), productID, payload)
	if err != nil {
		return h.fail(c, "update", err)
	}

	h.metrics.RecordProductOperation("update", metrics.OutcomeSuccess)
	return c.Status(fiber.StatusOK).JSON(product)
}

// HandleDeleteProduct deletes a product by its product_id.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID, ok := parseProductID(c)
	if !ok {
		return h.fail(c, "delete", services.ErrProductNotFound)
	}

	if _, err := h.service.DeleteProduct(c.UserContext(), productID); err != nil {
		return h.fail(c, "delete", err)
	}

	h.log.Info("Product deleted",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Int64("product_id", productID))
	h.metrics.RecordProductOperation("delete", metrics.OutcomeSuccess)
	return c.Status(fiber.StatusOK).JSON(fmt.Sprintf("ID : %d is deleted successfully", productID))
}

// fail writes the response for err. Internal errors are logged and reported
// without detail.
func (h *ProductHandler) fail(c *fiber.Ctx, operation string, err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		h.metrics.RecordProductOperation(operation, metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Messages})
	case errors.Is(err, errInvalidBody):
		h.metrics.RecordProductOperation(operation, metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	case errors.Is(err, services.ErrProductDataMissing):
		h.metrics.RecordProductOperation(operation, metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Product data is missing"})
	case errors.Is(err, services.ErrProductIDExists):
		h.metrics.RecordProductOperation(operation, metrics.OutcomeInvalid)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Product ID already exists"})
	case errors.Is(err, services.ErrProductNotFound):
		h.metrics.RecordProductOperation(operation, metrics.OutcomeNotFound)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	default:
		h.log.Error("Product operation failed",
			zap.String("operation", operation),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		h.metrics.RecordProductOperation(operation, metrics.OutcomeError)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

// parseProductID reads the :id route parameter. Anything that is not a
// positive integer cannot name a product.
func parseProductID(c *fiber.Ctx) (int64, bool) {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || productID <= 0 {
		return 0, false
	}
	return productID, true
}

// decodePayload parses body as a JSON object, keeping numbers as
// json.Number. An empty body or JSON null yields a nil map.
func decodePayload(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", errInvalidBody)
	}
	return payload, nil
}
