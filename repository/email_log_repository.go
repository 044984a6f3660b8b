package repository

import (
	"context"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// EmailLogRepositoryImpl implements EmailLogRepository interface
type EmailLogRepositoryImpl struct {
	*BaseRepository[models.EmailLog, models.EmailLogFilter]
}

// NewEmailLogRepository creates a new email log repository
func NewEmailLogRepository(db *gorm.DB) EmailLogRepository {
	return &EmailLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailLog, models.EmailLogFilter](db),
	}
}

func (r *EmailLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.EmailLogFilter) *gorm.DB {
	if filter.Recipient != nil {
		query = query.Where("recipient = ?", *filter.Recipient)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Template != nil {
		query = query.Where("template = ?", *filter.Template)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	return query
}

// ByFilter retrieves email logs based on filter criteria
func (r *EmailLogRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailLogFilter, orderBy string, limit, offset int) ([]*models.EmailLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailLog{}), filter)
	query = paginate(query, orderBy, "id DESC", limit, offset)

	var rows []*models.EmailLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of email logs matching filter
func (r *EmailLogRepositoryImpl) Count(ctx context.Context, filter models.EmailLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any email log matches the filter
func (r *EmailLogRepositoryImpl) Exists(ctx context.Context, filter models.EmailLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
