package models

import "time"

// Product represents a product in the catalog.
//
// ID is the storage key and is never used for lookups; callers address a
// product by ProductID.
type Product struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID int64      `json:"product_id" gorm:"uniqueIndex;not null"`
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	Category  string     `json:"category" gorm:"type:varchar(255);not null"`
	Price     float64    `json:"price" gorm:"not null"`
	Stock     float64    `json:"stock" gorm:"not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// ProductFields holds the fields written by an edit.
type ProductFields struct {
	Name      string
	Category  string
	Price     float64
	Stock     float64
	UpdatedAt time.Time
}

// Apply copies the fields onto p.
func (f ProductFields) Apply(p *Product) {
	p.Name = f.Name
	p.Category = f.Category
	p.Price = f.Price
	p.Stock = f.Stock
	updatedAt := f.UpdatedAt
	p.UpdatedAt = &updatedAt
}

// Columns returns the fields keyed by column name. A map is used so zero
// prices and stock levels are still written.
func (f ProductFields) Columns() map[string]any {
	return map[string]any{
		"name":       f.Name,
		"category":   f.Category,
		"price":      f.Price,
		"stock":      f.Stock,
		"updated_at": f.UpdatedAt,
	}
}
