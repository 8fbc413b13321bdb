package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"gorm.io/gorm"
)

// IdentifierRepositoryImpl implements IdentifierRepository
type IdentifierRepositoryImpl struct {
	*BaseRepository[models.Identifier, models.IdentifierFilter]
}

func NewIdentifierRepository(db *gorm.DB) IdentifierRepository {
	return &IdentifierRepositoryImpl{BaseRepository: NewBaseRepository[models.Identifier, models.IdentifierFilter](db)}
}

func (r *IdentifierRepositoryImpl) applyFilter(db *gorm.DB, f models.IdentifierFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CustomerUUID != nil {
		db = db.Where("customer_uuid = ?", *f.CustomerUUID)
	}
	if f.IdentifierType != nil {
		db = db.Where("identifier_type = ?", *f.IdentifierType)
	}
	if f.NormalizedValue != nil {
		db = db.Where("normalized_value = ?", *f.NormalizedValue)
	}
	if f.Source != nil {
		db = db.Where("source = ?", *f.Source)
	}
	if f.MatchConfidence != nil {
		db = db.Where("match_confidence = ?", *f.MatchConfidence)
	}
	if f.ObservedAfter != nil {
		db = db.Where("observed_at >= ?", *f.ObservedAfter)
	}
	if f.ObservedBefore != nil {
		db = db.Where("observed_at < ?", *f.ObservedBefore)
	}
	return db
}

func (r *IdentifierRepositoryImpl) ByFilter(ctx context.Context, filter models.IdentifierFilter, orderBy string, limit, offset int) ([]*models.Identifier, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Identifier{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Identifier
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *IdentifierRepositoryImpl) Count(ctx context.Context, filter models.IdentifierFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Identifier{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *IdentifierRepositoryImpl) Exists(ctx context.Context, filter models.IdentifierFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *IdentifierRepositoryImpl) ListByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]*models.Identifier, error) {
	return r.ByFilter(ctx, models.IdentifierFilter{CustomerUUID: &customerUUID}, "observed_at ASC, id ASC", 0, 0)
}

// ListAll returns the whole identifier log in append order. Registry reload
// replays rows through first-writer-wins indices, and records carry
// historical observed_at stamps, so ordering by observation time could
// re-bind a shared value to a different customer across restarts.
func (r *IdentifierRepositoryImpl) ListAll(ctx context.Context) ([]*models.Identifier, error) {
	return r.ByFilter(ctx, models.IdentifierFilter{}, "id ASC", 0, 0)
}
