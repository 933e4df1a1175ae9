package models

import "github.com/google/uuid"

// Store belongs to exactly one company. Its code is unique per company.
type Store struct {
	Base
	Name      string    `gorm:"size:255;not null;index"`
	Code      int       `gorm:"not null;uniqueIndex:ux_stores_code_company_id,priority:1"`
	Address   *string   `gorm:"size:500"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_stores_code_company_id,priority:2"`
	// Company is only populated when explicitly loaded.
	Company *Company
	// Products is only populated when explicitly loaded.
	Products []Product `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
