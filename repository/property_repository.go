package repository

import (
	"context"
	"strings"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// PropertyRepositoryImpl implements PropertyRepository interface
type PropertyRepositoryImpl struct {
	*BaseRepository[models.Property, models.PropertyFilter]
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &PropertyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Property, models.PropertyFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *PropertyRepositoryImpl) applyFilter(query *gorm.DB, filter models.PropertyFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(address) LIKE ?)", term, term)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.City != nil {
		query = query.Where("LOWER(city) = ?", strings.ToLower(*filter.City))
	}
	if filter.LandlordID != nil {
		query = query.Where("landlord_id = ?", *filter.LandlordID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.MinRent != nil {
		query = query.Where("monthly_rent >= ?", *filter.MinRent)
	}
	if filter.MaxRent != nil {
		query = query.Where("monthly_rent <= ?", *filter.MaxRent)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves properties based on filter criteria
func (r *PropertyRepositoryImpl) ByFilter(ctx context.Context, filter models.PropertyFilter, orderBy string, limit, offset int) ([]*models.Property, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Property{}), filter)
	query = paginate(query, orderBy, "created_at DESC, id DESC", limit, offset)

	var rows []*models.Property
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of properties matching filter
func (r *PropertyRepositoryImpl) Count(ctx context.Context, filter models.PropertyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Property{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any property matches the filter
func (r *PropertyRepositoryImpl) Exists(ctx context.Context, filter models.PropertyFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
