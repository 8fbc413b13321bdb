package repository

import (
	"context"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"gorm.io/gorm"
)

// FamilyEdgeRepositoryImpl implements FamilyEdgeRepository
type FamilyEdgeRepositoryImpl struct {
	*BaseRepository[models.FamilyEdge, models.FamilyEdgeFilter]
}

func NewFamilyEdgeRepository(db *gorm.DB) FamilyEdgeRepository {
	return &FamilyEdgeRepositoryImpl{BaseRepository: NewBaseRepository[models.FamilyEdge, models.FamilyEdgeFilter](db)}
}

func (r *FamilyEdgeRepositoryImpl) applyFilter(db *gorm.DB, f models.FamilyEdgeFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.ChildUUID != nil {
		db = db.Where("child_uuid = ?", *f.ChildUUID)
	}
	if f.ParentUUID != nil {
		db = db.Where("parent_uuid = ?", *f.ParentUUID)
	}
	return db
}

func (r *FamilyEdgeRepositoryImpl) ByFilter(ctx context.Context, filter models.FamilyEdgeFilter, orderBy string, limit, offset int) ([]*models.FamilyEdge, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.FamilyEdge{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.FamilyEdge
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *FamilyEdgeRepositoryImpl) Count(ctx context.Context, filter models.FamilyEdgeFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.FamilyEdge{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *FamilyEdgeRepositoryImpl) Exists(ctx context.Context, filter models.FamilyEdgeFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *FamilyEdgeRepositoryImpl) ListAll(ctx context.Context) ([]*models.FamilyEdge, error) {
	return r.ByFilter(ctx, models.FamilyEdgeFilter{}, "id ASC", 0, 0)
}
