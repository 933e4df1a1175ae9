package dto

import (
	"time"

	"github.com/google/uuid"
)

type StoreDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Code        int        `json:"code"`
	Address     *string    `json:"address,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompanyID   uuid.UUID  `json:"companyId"`
	CompanyName string     `json:"companyName"`
	CompanyCode int        `json:"companyCode"`
	// Products is only filled by the with-products lookups.
	Products []ProductDTO `json:"products,omitempty"`
}

// CreateStoreInput creates a store under the company addressed by
// CompanyCode. IsActive defaults to true.
type CreateStoreInput struct {
	Name        string  `json:"name" validate:"notblank,max=255"`
	Code        int     `json:"code" validate:"gt=0"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive,omitempty"`
	CompanyCode int     `json:"companyCode"`
}

// UpdateStoreInput replaces every mutable field of a store, including its
// company. A nil Address clears the stored address.
type UpdateStoreInput struct {
	Name        string  `json:"name" validate:"notblank,max=255"`
	Code        int     `json:"code" validate:"gt=0"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	IsActive    bool    `json:"isActive"`
	CompanyCode int     `json:"companyCode"`
}

// PatchStoreInput changes only the fields that are set. Address set to nil
// clears it. A set CompanyCode moves the store to that company.
type PatchStoreInput struct {
	Name        Optional[string]  `json:"name"`
	Code        Optional[int]     `json:"code"`
	Address     Optional[*string] `json:"address"`
	IsActive    Optional[bool]    `json:"isActive"`
	CompanyCode Optional[int]     `json:"companyCode"`
}

func (p PatchStoreInput) IsEmpty() bool {
	return !p.Name.Set && !p.Code.Set && !p.Address.Set && !p.IsActive.Set && !p.CompanyCode.Set
}
