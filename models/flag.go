package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Flag priorities
const (
	FlagPriorityHigh   = "high"
	FlagPriorityMedium = "medium"
	FlagPriorityLow    = "low"
)

// Keys the engine understands inside flag_data
const (
	FlagDataExperimentID       = "experiment_id"
	FlagDataABGroup            = "ab_group"
	FlagDataUsingParentContact = "is_using_parent_contact"
)

// Flag is a time-bounded marketing or operational trigger. At most one live
// row exists per (customer, flag_type); re-triggering overwrites
// flag_added_date, extending the flag's lifetime.
type Flag struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerUUID uuid.UUID `gorm:"column:customer_uuid;type:uuid;not null;index:idx_flags_customer_type" json:"customer_uuid"`

	FlagType      string          `gorm:"size:64;not null;index:idx_flags_customer_type" json:"flag_type"`
	TriggeredDate time.Time       `gorm:"not null" json:"triggered_date"`
	FlagData      json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"flag_data"`
	Priority      string          `gorm:"size:16;not null;default:'medium'" json:"priority"`
	FlagAddedDate time.Time       `gorm:"not null;index:idx_flags_added_date" json:"flag_added_date"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (Flag) TableName() string { return "flags" }

// FlagFilter represents filter criteria for flag queries
type FlagFilter struct {
	ID           *uint
	CustomerUUID *uuid.UUID
	FlagType     *string
	Priority     *string
	AddedAfter   *time.Time
	AddedBefore  *time.Time
}

// DataMap decodes flag_data into a generic map. A nil or empty payload
// decodes to an empty map.
func (f *Flag) DataMap() map[string]any {
	out := map[string]any{}
	if len(f.FlagData) == 0 {
		return out
	}
	_ = json.Unmarshal(f.FlagData, &out)
	return out
}

// SetData re-encodes the provided map into flag_data.
func (f *Flag) SetData(data map[string]any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	f.FlagData = raw
}

// ExperimentInfo extracts the A/B experiment assignment carried in flag_data,
// if any. Both experiment_id and ab_group must be present.
func (f *Flag) ExperimentInfo() (experimentID, abGroup string, ok bool) {
	data := f.DataMap()
	id, _ := data[FlagDataExperimentID].(string)
	group, _ := data[FlagDataABGroup].(string)
	if id == "" || group == "" {
		return "", "", false
	}
	return id, group, true
}
