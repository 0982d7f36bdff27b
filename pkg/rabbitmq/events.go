package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"katalog/internal/models"
)

// Routing keys for product lifecycle events.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent describes a change to a product. Product is omitted for deletions.
type ProductEvent struct {
	Event      string          `json:"event"`
	ProductID  int64           `json:"product_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Product    *models.Product `json:"product,omitempty"`
}

// NewProductEvent builds the event for kind. Deletions carry only the product_id.
func NewProductEvent(kind string, product models.Product, at time.Time) ProductEvent {
	event := ProductEvent{
		Event:      kind,
		ProductID:  product.ProductID,
		OccurredAt: at.UTC(),
	}
	if kind != EventProductDeleted {
		event.Product = &product
	}
	return event
}

// Encode marshals the event to JSON.
func (e ProductEvent) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Event, err)
	}
	return body, nil
}

// DecodeProductEvent parses a message body produced by Encode.
func DecodeProductEvent(body []byte) (ProductEvent, error) {
	var event ProductEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return ProductEvent{}, fmt.Errorf("failed to unmarshal product event: %w", err)
	}
	if event.Event == "" {
		return ProductEvent{}, fmt.Errorf("product event has no type")
	}
	return event, nil
}
