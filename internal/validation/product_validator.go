// Package validation checks product payloads before they reach the store.
//
// Payloads arrive as decoded JSON objects. Values are first coerced into
// typed fields, then the field rules declared in struct tags are evaluated
// with the validator library. Every violation becomes one human readable
// message of the form `"<field>" <reason>`.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxSafeInteger is the largest integer a JSON number carries without loss.
const maxSafeInteger = 1<<53 - 1

// Field names in the order messages are reported.
var productFields = []string{"product_id", "name", "category", "price", "stock"}

// Error is returned when a payload violates one or more field rules.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// ProductInput is a payload that passed validation.
type ProductInput struct {
	ProductID int64
	Name      string
	Category  string
	Price     float64
	Stock     float64
}

// productPayload carries coerced values; nil means the key was absent.
type productPayload struct {
	ProductID *float64 `json:"product_id" validate:"required,gt=0,integer,safeint"`
	Name      *string  `json:"name" validate:"required,min=8"`
	Category  *string  `json:"category" validate:"required,min=1"`
	Price     *float64 `json:"price" validate:"required,gte=0"`
	Stock     *float64 `json:"stock" validate:"required,gte=0"`
}

// ProductValidator validates product payloads. It is safe for concurrent use.
type ProductValidator struct {
	validate *validator.Validate
}

// NewProductValidator creates a new ProductValidator.
func NewProductValidator() *ProductValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})
	_ = v.RegisterValidation("safeint", func(fl validator.FieldLevel) bool {
		return fl.Field().Float() <= maxSafeInteger
	})
	return &ProductValidator{validate: v}
}

// Validate checks payload against the product schema. On success it returns
// the normalized input; otherwise the error is an *Error listing every
// violation.
func (pv *ProductValidator) Validate(payload map[string]any) (ProductInput, error) {
	messages := make(map[string]string)
	var p productPayload

	p.ProductID = coerceNumber(payload, "product_id", messages)
	p.Name = coerceString(payload, "name", messages)
	p.Category = coerceString(payload, "category", messages)
	p.Price = coerceNumber(payload, "price", messages)
	p.Stock = coerceNumber(payload, "stock", messages)

	if err := pv.validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return ProductInput{}, fmt.Errorf("failed to validate product payload: %w", err)
		}
		for _, fe := range fieldErrs {
			if _, seen := messages[fe.Field()]; seen {
				continue
			}
			messages[fe.Field()] = describe(fe)
		}
	}

	var ordered []string
	for _, field := range productFields {
		if msg, ok := messages[field]; ok {
			ordered = append(ordered, msg)
		}
	}
	ordered = append(ordered, unknownKeys(payload)...)

	if len(ordered) > 0 {
		return ProductInput{}, &Error{Messages: ordered}
	}

	return ProductInput{
		ProductID: int64(*p.ProductID),
		Name:      *p.Name,
		Category:  *p.Category,
		Price:     *p.Price,
		Stock:     *p.Stock,
	}, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "gt":
		if fe.Param() == "0" {
			return fmt.Sprintf("%q must be a positive number", field)
		}
		return fmt.Sprintf("%q must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%q must be greater than or equal to %s", field, fe.Param())
	case "integer":
		return fmt.Sprintf("%q must be an integer", field)
	case "safeint":
		return fmt.Sprintf("%q must be a safe number", field)
	case "min":
		if fe.Param() == "1" {
			return fmt.Sprintf("%q is not allowed to be empty", field)
		}
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%q failed on the '%s' rule", field, fe.Tag())
	}
}

func coerceNumber(payload map[string]any, key string, messages map[string]string) *float64 {
	raw, ok := payload[key]
	if !ok {
		return nil
	}

	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		err = fmt.Errorf("unsupported type %T", raw)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		messages[key] = fmt.Sprintf("%q must be a number", key)
		return nil
	}
	return &f
}

func coerceString(payload map[string]any, key string, messages map[string]string) *string {
	raw, ok := payload[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		messages[key] = fmt.Sprintf("%q must be a string", key)
		return nil
	}
	return &s
}

func unknownKeys(payload map[string]any) []string {
	known := make(map[string]struct{}, len(productFields))
	for _, f := range productFields {
		known[f] = struct{}{}
	}

	var keys []string
	for k := range payload {
		if _, ok := known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%q is not allowed", k))
	}
	return msgs
}
