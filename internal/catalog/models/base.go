// Package models defines the catalog entities: companies own stores and
// stores own products. The structs carry their GORM mapping so the schema
// (composite unique indexes, cascading foreign keys) lives next to the fields.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the fields shared by every catalog entity.
type Base struct {
	// ID is the opaque identifier, generated when the entity is first committed.
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`
	// IsActive flags whether the entity is in use.
	IsActive bool `gorm:"not null;index"`
	// CreatedAt is stamped once, in UTC, when the entity is inserted.
	CreatedAt time.Time `gorm:"not null;index;autoCreateTime:false"`
	// UpdatedAt stays nil until the first committed modification.
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

// Auditable is implemented by entities whose audit fields are stamped by the
// unit of work on commit.
type Auditable interface {
	EntityID() uuid.UUID
	EnsureID()
	MarkCreated(at time.Time)
	MarkUpdated(at time.Time)
}

// EntityID returns the entity identifier.
func (b *Base) EntityID() uuid.UUID {
	return b.ID
}

// EnsureID assigns a new identifier when none is set.
func (b *Base) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// MarkCreated records the insertion time. A freshly inserted entity has never
// been updated.
func (b *Base) MarkCreated(at time.Time) {
	b.CreatedAt = at.UTC()
	b.UpdatedAt = nil
}

// MarkUpdated records the modification time.
func (b *Base) MarkUpdated(at time.Time) {
	at = at.UTC()
	b.UpdatedAt = &at
}
