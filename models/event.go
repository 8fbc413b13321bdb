package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types produced by the pipeline itself. Upstream sources use an open
// vocabulary (purchase, check_in, email_open, ...) that is passed through.
const (
	EventTypeFlagSet = "flag_set"

	EventTypeCheckIn            = "check_in"
	EventTypeDayPassPurchase    = "day_pass_purchase"
	EventTypeMembershipPurchase = "membership_purchase"
	EventTypeMembershipCanceled = "membership_canceled"
)

// Event is one timestamped customer touchpoint. Events are produced by
// upstream collaborators and are read-only input to the flagging engine,
// except that the engine appends flag_set events as a side effect of its own
// output.
type Event struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerUUID uuid.UUID `gorm:"column:customer_uuid;type:uuid;not null;index:idx_events_customer_date" json:"customer_uuid"`

	EventType string          `gorm:"size:64;not null;index:idx_events_type" json:"event_type"`
	EventDate time.Time       `gorm:"not null;index:idx_events_customer_date" json:"event_date"`
	Source    string          `gorm:"size:64;not null" json:"source"`
	Payload   json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"payload"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (Event) TableName() string { return "events" }

// EventFilter represents filter criteria for event queries
type EventFilter struct {
	ID           *uint
	CustomerUUID *uuid.UUID
	EventType    *string
	Source       *string
	DateAfter    *time.Time
	DateBefore   *time.Time
}
