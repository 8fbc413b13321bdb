package models

import (
	"time"

	"github.com/google/uuid"
)

// ExperimentEntry records that a customer entered an A/B experiment group.
// Assignment is discovered lazily: the row is written the first time a flag
// carrying experiment_id and ab_group fires for the customer.
type ExperimentEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerUUID uuid.UUID `gorm:"column:customer_uuid;type:uuid;not null;index:idx_experiment_entries_customer" json:"customer_uuid"`

	ExperimentID string    `gorm:"size:64;not null;index:idx_experiment_entries_experiment" json:"experiment_id"`
	ABGroup      string    `gorm:"size:32;not null" json:"ab_group"`
	FlagType     string    `gorm:"size:64;not null" json:"flag_type"`
	EnteredAt    time.Time `gorm:"not null" json:"entered_at"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (ExperimentEntry) TableName() string { return "experiment_entries" }

// ExperimentEntryFilter represents filter criteria for experiment entry queries
type ExperimentEntryFilter struct {
	ID           *uint
	CustomerUUID *uuid.UUID
	ExperimentID *string
	ABGroup      *string
}
