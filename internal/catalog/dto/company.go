// Package dto holds the transfer objects exchanged with the presentation
// layer: read models with denormalized parent fields, and the create, full
// update and patch inputs for each resource.
package dto

import (
	"time"

	"github.com/google/uuid"
)

type CompanyDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Code      int        `json:"code"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	// Stores is only filled by the with-stores lookups.
	Stores []StoreDTO `json:"stores,omitempty"`
}

// CreateCompanyInput creates a company. IsActive defaults to true.
type CreateCompanyInput struct {
	Name     string `json:"name" validate:"notblank,max=255"`
	Code     int    `json:"code" validate:"gt=0"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// UpdateCompanyInput replaces every mutable field of a company.
type UpdateCompanyInput struct {
	Name     string `json:"name" validate:"notblank,max=255"`
	Code     int    `json:"code" validate:"gt=0"`
	IsActive bool   `json:"isActive"`
}

// PatchCompanyInput changes only the fields that are set.
type PatchCompanyInput struct {
	Name     Optional[string] `json:"name"`
	Code     Optional[int]    `json:"code"`
	IsActive Optional[bool]   `json:"isActive"`
}

// IsEmpty reports whether the patch sets no field at all.
func (p PatchCompanyInput) IsEmpty() bool {
	return !p.Name.Set && !p.Code.Set && !p.IsActive.Set
}
