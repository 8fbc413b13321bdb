package models

import (
	"time"

	"github.com/google/uuid"
)

// Identifier types
const (
	IdentifierTypeEmail = "email"
	IdentifierTypePhone = "phone"
)

// Match confidence tiers. ConfidenceExact means "newly created, no match
// needed"; ConfidenceHigh covers exact and corroborated index hits;
// ConfidenceLow covers fuzzy matches.
const (
	ConfidenceExact  = "exact"
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Match reasons recorded on identifier rows
const (
	MatchReasonNewCustomer        = "new_customer"
	MatchReasonExactEmail         = "exact_email"
	MatchReasonExactPhone         = "exact_phone"
	MatchReasonExactEmailAndPhone = "exact_email_and_phone"
)

// Identifier is one observed email or phone value tied to a customer,
// together with the match decision that bound it there. Rows are append-only
// and never mutated after creation.
type Identifier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerUUID uuid.UUID `gorm:"column:customer_uuid;type:uuid;not null;index:idx_identifiers_customer_uuid" json:"customer_uuid"`

	IdentifierType  string `gorm:"size:16;not null;index:idx_identifiers_type_normalized" json:"identifier_type"`
	RawValue        string `gorm:"size:255;not null" json:"raw_value"`
	NormalizedValue string `gorm:"size:255;not null;index:idx_identifiers_type_normalized" json:"normalized_value"`

	Source         string `gorm:"size:64;not null" json:"source"`
	SourceRecordID string `gorm:"size:128;not null" json:"source_record_id"`

	MatchConfidence string    `gorm:"size:16;not null" json:"match_confidence"`
	MatchReason     string    `gorm:"size:64;not null" json:"match_reason"`
	ObservedAt      time.Time `gorm:"not null;index:idx_identifiers_observed_at" json:"observed_at"`
	IsPrimary       bool      `gorm:"not null;default:false" json:"is_primary"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (Identifier) TableName() string { return "identifiers" }

// IdentifierFilter represents filter criteria for identifier queries
type IdentifierFilter struct {
	ID              *uint
	CustomerUUID    *uuid.UUID
	IdentifierType  *string
	NormalizedValue *string
	Source          *string
	MatchConfidence *string
	ObservedAfter   *time.Time
	ObservedBefore  *time.Time
}
