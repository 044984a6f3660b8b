package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/utils"
	"gorm.io/gorm"
)

// SequenceCounterRepositoryImpl implements SequenceCounterRepository interface
type SequenceCounterRepositoryImpl struct {
	*BaseRepository[models.SequenceCounter, models.SequenceCounterFilter]
}

// NewSequenceCounterRepository creates a new sequence counter repository
func NewSequenceCounterRepository(db *gorm.DB) SequenceCounterRepository {
	return &SequenceCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SequenceCounter, models.SequenceCounterFilter](db),
	}
}

// ByKey retrieves a counter by its key, nil when the key was never used
func (r *SequenceCounterRepositoryImpl) ByKey(ctx context.Context, key string) (*models.SequenceCounter, error) {
	db := r.getDB(ctx)

	var row models.SequenceCounter
	if err := db.Where("counter_key = ?", key).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sequence counter %s: %w", key, err)
	}
	return &row, nil
}

// Next reads the counter and advances it with a compare-and-set on the value it read.
// A missing row is created at 1. Losing either race yields ErrCounterConflict so the
// caller can re-run the whole transaction.
func (r *SequenceCounterRepositoryImpl) Next(ctx context.Context, entityType, yearMonth string) (int64, error) {
	tx, ok := ctx.Value(TxContextKey).(*gorm.DB)
	if !ok || tx == nil {
		return 0, ErrTransactionRequired
	}

	key := models.SequenceCounterKey(entityType, yearMonth)
	now := utils.UTCNow()

	var row models.SequenceCounter
	err := tx.Where("counter_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.SequenceCounter{
			Key:        key,
			EntityType: entityType,
			YearMonth:  yearMonth,
			Value:      1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&row).Error; err != nil {
			if IsUniqueViolation(err) {
				return 0, fmt.Errorf("%w: %s", ErrCounterConflict, key)
			}
			return 0, fmt.Errorf("failed to create sequence counter %s: %w", key, err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence counter %s: %w", key, err)
	}

	res := tx.Model(&models.SequenceCounter{}).
		Where("counter_key = ? AND value = ?", key, row.Value).
		Updates(map[string]any{
			"value":      gorm.Expr("value + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to advance sequence counter %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: %s", ErrCounterConflict, key)
	}

	return row.Value + 1, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *SequenceCounterRepositoryImpl) applyFilter(query *gorm.DB, filter models.SequenceCounterFilter) *gorm.DB {
	if filter.Key != nil {
		query = query.Where("counter_key = ?", *filter.Key)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.YearMonth != nil {
		query = query.Where("year_month = ?", *filter.YearMonth)
	}
	return query
}

// ByFilter retrieves counters based on filter criteria
func (r *SequenceCounterRepositoryImpl) ByFilter(ctx context.Context, filter models.SequenceCounterFilter, orderBy string, limit, offset int) ([]*models.SequenceCounter, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SequenceCounter{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "year_month DESC, entity_type ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.SequenceCounter
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of counters matching filter
func (r *SequenceCounterRepositoryImpl) Count(ctx context.Context, filter models.SequenceCounterFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SequenceCounter{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any counter matches the filter
func (r *SequenceCounterRepositoryImpl) Exists(ctx context.Context, filter models.SequenceCounterFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
