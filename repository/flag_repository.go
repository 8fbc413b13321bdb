package repository

import (
	"context"
	"fmt"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"gorm.io/gorm"
)

// FlagRepositoryImpl implements FlagRepository
type FlagRepositoryImpl struct {
	*BaseRepository[models.Flag, models.FlagFilter]
}

func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &FlagRepositoryImpl{BaseRepository: NewBaseRepository[models.Flag, models.FlagFilter](db)}
}

func (r *FlagRepositoryImpl) applyFilter(db *gorm.DB, f models.FlagFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CustomerUUID != nil {
		db = db.Where("customer_uuid = ?", *f.CustomerUUID)
	}
	if f.FlagType != nil {
		db = db.Where("flag_type = ?", *f.FlagType)
	}
	if f.Priority != nil {
		db = db.Where("priority = ?", *f.Priority)
	}
	if f.AddedAfter != nil {
		db = db.Where("flag_added_date >= ?", *f.AddedAfter)
	}
	if f.AddedBefore != nil {
		db = db.Where("flag_added_date < ?", *f.AddedBefore)
	}
	return db
}

func (r *FlagRepositoryImpl) ByFilter(ctx context.Context, filter models.FlagFilter, orderBy string, limit, offset int) ([]*models.Flag, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Flag{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Flag
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *FlagRepositoryImpl) Count(ctx context.Context, filter models.FlagFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Flag{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *FlagRepositoryImpl) Exists(ctx context.Context, filter models.FlagFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *FlagRepositoryImpl) ListAll(ctx context.Context) ([]*models.Flag, error) {
	return r.ByFilter(ctx, models.FlagFilter{}, "flag_added_date ASC, id ASC", 0, 0)
}

// ReplaceAll swaps the flags table for the provided rows. Callers are
// expected to run this inside WithTransaction together with the flag_set
// event appends so a crash cannot leave the two outputs inconsistent.
func (r *FlagRepositoryImpl) ReplaceAll(ctx context.Context, flags []*models.Flag) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	if err = db.Where("1 = 1").Delete(&models.Flag{}).Error; err != nil {
		return fmt.Errorf("failed to clear flags table: %w", err)
	}
	if len(flags) > 0 {
		if err = db.CreateInBatches(flags, 100).Error; err != nil {
			return fmt.Errorf("failed to write flags table: %w", err)
		}
	}
	return nil
}
