// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for the resolved customer registry
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByUUID(ctx context.Context, customerUUID uuid.UUID) (*models.Customer, error)
	ByPrimaryEmail(ctx context.Context, email string) (*models.Customer, error)
	ListAll(ctx context.Context) ([]*models.Customer, error)
	UpdateSeen(ctx context.Context, customer *models.Customer) error
}

// IdentifierRepository defines operations for the append-only identifier log
type IdentifierRepository interface {
	Repository[models.Identifier, models.IdentifierFilter]
	ListByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]*models.Identifier, error)
	ListAll(ctx context.Context) ([]*models.Identifier, error)
}

// EventRepository defines operations for the shared customer event feed
type EventRepository interface {
	Repository[models.Event, models.EventFilter]
	ListByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]*models.Event, error)
	ListAll(ctx context.Context) ([]*models.Event, error)
}

// FlagRepository defines operations for the flags table
type FlagRepository interface {
	Repository[models.Flag, models.FlagFilter]
	ListAll(ctx context.Context) ([]*models.Flag, error)
	// ReplaceAll swaps the whole flags table for the provided rows. The table
	// is read-modify-written wholesale each evaluation run.
	ReplaceAll(ctx context.Context, flags []*models.Flag) error
}

// FamilyEdgeRepository defines operations for child -> parent contact links
type FamilyEdgeRepository interface {
	Repository[models.FamilyEdge, models.FamilyEdgeFilter]
	ListAll(ctx context.Context) ([]*models.FamilyEdge, error)
}

// ExperimentEntryRepository defines operations for the experiment-tracking sink
type ExperimentEntryRepository interface {
	Repository[models.ExperimentEntry, models.ExperimentEntryFilter]
	HasEntry(ctx context.Context, customerUUID uuid.UUID, experimentID string) (bool, error)
}
