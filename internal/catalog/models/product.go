package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product belongs to exactly one store. Its code is unique per store.
type Product struct {
	Base
	Name        string          `gorm:"size:255;not null"`
	Code        int             `gorm:"not null;uniqueIndex:ux_products_code_store_id,priority:1"`
	Description *string         `gorm:"size:1000"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	StoreID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_products_code_store_id,priority:2"`
	// Store is only populated when explicitly loaded.
	Store *Store
}
