package models

// Company is the tenant root. Its code is unique across all companies.
type Company struct {
	Base
	// Name is the display name of the company.
	Name string `gorm:"size:255;not null"`
	// Code is the human-assigned identifier clients address the company by.
	Code int `gorm:"not null;uniqueIndex"`
	// Stores is only populated when explicitly loaded.
	Stores []Store `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
