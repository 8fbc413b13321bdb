// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
	"gorm.io/gorm"
)

// CustomerRepositoryImpl implements CustomerRepository interface
type CustomerRepositoryImpl struct {
	*BaseRepository[models.Customer, models.CustomerFilter]
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Customer, models.CustomerFilter](db),
	}
}

func (r *CustomerRepositoryImpl) applyFilter(db *gorm.DB, f models.CustomerFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.PrimaryEmail != nil {
		db = db.Where("primary_email = ?", *f.PrimaryEmail)
	}
	if f.PrimaryPhone != nil {
		db = db.Where("primary_phone = ?", *f.PrimaryPhone)
	}
	if f.Source != nil {
		db = db.Where("? = ANY(sources)", *f.Source)
	}
	if f.FirstSeenAfter != nil {
		db = db.Where("first_seen >= ?", *f.FirstSeenAfter)
	}
	if f.FirstSeenBefore != nil {
		db = db.Where("first_seen < ?", *f.FirstSeenBefore)
	}
	return db
}

func (r *CustomerRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Customer{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Customer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomerRepositoryImpl) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Customer{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CustomerRepositoryImpl) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// ByUUID retrieves a customer by its opaque customer identifier
func (r *CustomerRepositoryImpl) ByUUID(ctx context.Context, customerUUID uuid.UUID) (*models.Customer, error) {
	customers, err := r.ByFilter(ctx, models.CustomerFilter{UUID: &customerUUID}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by UUID: %w", err)
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return customers[0], nil
}

// ByPrimaryEmail retrieves a customer by normalized primary email
func (r *CustomerRepositoryImpl) ByPrimaryEmail(ctx context.Context, email string) (*models.Customer, error) {
	customers, err := r.ByFilter(ctx, models.CustomerFilter{PrimaryEmail: &email}, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by primary email: %w", err)
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return customers[0], nil
}

// ListAll retrieves the whole registry ordered by first_seen
func (r *CustomerRepositoryImpl) ListAll(ctx context.Context) ([]*models.Customer, error) {
	return r.ByFilter(ctx, models.CustomerFilter{}, "first_seen ASC, id ASC", 0, 0)
}

// UpdateSeen persists last_seen and sources for an existing customer row.
// Primary identifiers are never overwritten.
func (r *CustomerRepositoryImpl) UpdateSeen(ctx context.Context, customer *models.Customer) error {
	db := r.getDB(ctx)
	err := db.Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"last_seen":  customer.LastSeen,
			"sources":    customer.Sources,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update customer seen state: %w", err)
	}
	return nil
}
