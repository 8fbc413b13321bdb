// Package businessflow contains the core business logic for identity
// resolution and flag evaluation.
package businessflow

import (
	"time"

	"github.com/google/uuid"
)

// ContactRecord is one raw contact observation streamed from an upstream
// system. Identifier fields are raw; normalization decides what is usable.
type ContactRecord struct {
	Email     string
	Phone     string
	Name      string
	Source    string
	SourceID  string
	FirstSeen time.Time
}

// Contact is the resolved contact info for one customer, as cached for rule
// evaluation.
type Contact struct {
	Email *string
	Phone *string
}

// HasAny reports whether the contact carries at least one usable channel.
func (c Contact) HasAny() bool {
	return c.Email != nil || c.Phone != nil
}

// ContactCache maps customers to their resolved contact info. It is built
// once per evaluation run and passed in explicitly so evaluations stay free
// of shared mutable state.
type ContactCache map[uuid.UUID]Contact

// FamilyGraph maps a child customer to its linked parent. The engine
// traverses exactly one hop.
type FamilyGraph map[uuid.UUID]uuid.UUID
