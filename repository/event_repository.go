package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"gorm.io/gorm"
)

// EventRepositoryImpl implements EventRepository
type EventRepositoryImpl struct {
	*BaseRepository[models.Event, models.EventFilter]
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &EventRepositoryImpl{BaseRepository: NewBaseRepository[models.Event, models.EventFilter](db)}
}

func (r *EventRepositoryImpl) applyFilter(db *gorm.DB, f models.EventFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CustomerUUID != nil {
		db = db.Where("customer_uuid = ?", *f.CustomerUUID)
	}
	if f.EventType != nil {
		db = db.Where("event_type = ?", *f.EventType)
	}
	if f.Source != nil {
		db = db.Where("source = ?", *f.Source)
	}
	if f.DateAfter != nil {
		db = db.Where("event_date >= ?", *f.DateAfter)
	}
	if f.DateBefore != nil {
		db = db.Where("event_date < ?", *f.DateBefore)
	}
	return db
}

func (r *EventRepositoryImpl) ByFilter(ctx context.Context, filter models.EventFilter, orderBy string, limit, offset int) ([]*models.Event, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Event{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Event
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EventRepositoryImpl) Count(ctx context.Context, filter models.EventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Event{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepositoryImpl) Exists(ctx context.Context, filter models.EventFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

func (r *EventRepositoryImpl) ListByCustomer(ctx context.Context, customerUUID uuid.UUID) ([]*models.Event, error) {
	return r.ByFilter(ctx, models.EventFilter{CustomerUUID: &customerUUID}, "event_date ASC, id ASC", 0, 0)
}

func (r *EventRepositoryImpl) ListAll(ctx context.Context) ([]*models.Event, error) {
	return r.ByFilter(ctx, models.EventFilter{}, "event_date ASC, id ASC", 0, 0)
}
