// Package models contains domain entities and business models for the customer data pipeline
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Customer is one resolved real-world person or account. A row is created the
// first time a contact record cannot be matched to an existing customer and is
// never deleted or merged afterwards; later matches only advance last_seen and
// extend sources.
type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`

	// Primary identifiers are the normalized forms observed when the customer
	// was first created. First writer wins; they are never overwritten.
	PrimaryEmail *string `gorm:"size:255;index:idx_customers_primary_email" json:"primary_email,omitempty"`
	PrimaryPhone *string `gorm:"size:32;index:idx_customers_primary_phone" json:"primary_phone,omitempty"`
	PrimaryName  *string `gorm:"size:255" json:"primary_name,omitempty"`

	FirstSeen time.Time      `gorm:"not null;index:idx_customers_first_seen" json:"first_seen"`
	LastSeen  time.Time      `gorm:"not null" json:"last_seen"`
	Sources   pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"sources"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	PrimaryEmail    *string
	PrimaryPhone    *string
	Source          *string
	FirstSeenAfter  *time.Time
	FirstSeenBefore *time.Time
}

// HasContactInfo reports whether the customer carries an own email or phone.
func (c *Customer) HasContactInfo() bool {
	return c.PrimaryEmail != nil || c.PrimaryPhone != nil
}

// AddSource records an originating system, keeping the set free of duplicates.
func (c *Customer) AddSource(source string) {
	for _, s := range c.Sources {
		if s == source {
			return
		}
	}
	c.Sources = append(c.Sources, source)
}

// Touch advances last_seen for a new observation while preserving the
// first_seen <= last_seen invariant.
func (c *Customer) Touch(observedAt time.Time) {
	if observedAt.After(c.LastSeen) {
		c.LastSeen = observedAt
	}
	if c.LastSeen.Before(c.FirstSeen) {
		c.LastSeen = c.FirstSeen
	}
}
