package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"gorm.io/gorm"
)

// ExperimentEntryRepositoryImpl implements ExperimentEntryRepository
type ExperimentEntryRepositoryImpl struct {
	*BaseRepository[models.ExperimentEntry, models.ExperimentEntryFilter]
}

func NewExperimentEntryRepository(db *gorm.DB) ExperimentEntryRepository {
	return &ExperimentEntryRepositoryImpl{BaseRepository: NewBaseRepository[models.ExperimentEntry, models.ExperimentEntryFilter](db)}
}

func (r *ExperimentEntryRepositoryImpl) applyFilter(db *gorm.DB, f models.ExperimentEntryFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CustomerUUID != nil {
		db = db.Where("customer_uuid = ?", *f.CustomerUUID)
	}
	if f.ExperimentID != nil {
		db = db.Where("experiment_id = ?", *f.ExperimentID)
	}
	if f.ABGroup != nil {
		db = db.Where("ab_group = ?", *f.ABGroup)
	}
	return db
}

func (r *ExperimentEntryRepositoryImpl) ByFilter(ctx context.Context, filter models.ExperimentEntryFilter, orderBy string, limit, offset int) ([]*models.ExperimentEntry, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ExperimentEntry{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.ExperimentEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ExperimentEntryRepositoryImpl) Count(ctx context.Context, filter models.ExperimentEntryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ExperimentEntry{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ExperimentEntryRepositoryImpl) Exists(ctx context.Context, filter models.ExperimentEntryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// HasEntry reports whether a customer already entered the given experiment, so
// repeated flag triggers do not produce duplicate assignments.
func (r *ExperimentEntryRepositoryImpl) HasEntry(ctx context.Context, customerUUID uuid.UUID, experimentID string) (bool, error) {
	return r.Exists(ctx, models.ExperimentEntryFilter{CustomerUUID: &customerUUID, ExperimentID: &experimentID})
}
