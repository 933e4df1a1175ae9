package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Code        int             `json:"code"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	StoreID     uuid.UUID       `json:"storeId"`
	StoreName   string          `json:"storeName"`
	StoreCode   int             `json:"storeCode"`
	CompanyCode int             `json:"companyCode,omitempty"`
}

// StoreRef addresses a store by code. Store codes are unique per company
// only, so CompanyCode is needed whenever the store code alone is ambiguous.
type StoreRef struct {
	StoreCode   int  `json:"storeCode"`
	CompanyCode *int `json:"companyCode,omitempty"`
}

// CreateProductInput creates a product in the referenced store. IsActive
// defaults to true.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"notblank,max=255"`
	Code        int             `json:"code" validate:"gt=0"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"isActive,omitempty"`
	StoreRef
}

// UpdateProductInput replaces every mutable field of a product, including
// its store. A nil Description clears the stored description.
type UpdateProductInput struct {
	Name        string          `json:"name" validate:"notblank,max=255"`
	Code        int             `json:"code" validate:"gt=0"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"isActive"`
	StoreRef
}

// PatchProductInput changes only the fields that are set. Description set to
// nil clears it. A set StoreCode moves the product to that store, resolved
// with CompanyCode when that is set too.
type PatchProductInput struct {
	Name        Optional[string]          `json:"name"`
	Code        Optional[int]             `json:"code"`
	Description Optional[*string]         `json:"description"`
	Price       Optional[decimal.Decimal] `json:"price"`
	IsActive    Optional[bool]            `json:"isActive"`
	StoreCode   Optional[int]             `json:"storeCode"`
	CompanyCode Optional[int]             `json:"companyCode"`
}

func (p PatchProductInput) IsEmpty() bool {
	return !p.Name.Set && !p.Code.Set && !p.Description.Set && !p.Price.Set &&
		!p.IsActive.Set && !p.StoreCode.Set
}
