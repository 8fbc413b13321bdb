package models

import (
	"time"

	"github.com/google/uuid"
)

// FamilyEdge links a child customer to a parent customer. The flagging engine
// traverses one hop child -> parent when the child has no contact info of its
// own.
type FamilyEdge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChildUUID  uuid.UUID `gorm:"column:child_uuid;type:uuid;not null;index:idx_family_edges_child" json:"child_uuid"`
	ParentUUID uuid.UUID `gorm:"column:parent_uuid;type:uuid;not null" json:"parent_uuid"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (FamilyEdge) TableName() string { return "family_edges" }

// FamilyEdgeFilter represents filter criteria for family edge queries
type FamilyEdgeFilter struct {
	ID         *uint
	ChildUUID  *uuid.UUID
	ParentUUID *uuid.UUID
}
