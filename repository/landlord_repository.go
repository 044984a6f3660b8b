package repository

import (
	"context"
	"strings"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// LandlordRepositoryImpl implements LandlordRepository interface
type LandlordRepositoryImpl struct {
	*BaseRepository[models.Landlord, models.PartyFilter]
}

// NewLandlordRepository creates a new landlord repository
func NewLandlordRepository(db *gorm.DB) LandlordRepository {
	return &LandlordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Landlord, models.PartyFilter](db),
	}
}

// ByEmail retrieves a landlord by email, case-insensitively
func (r *LandlordRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Landlord, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	rows, err := r.ByFilter(ctx, models.PartyFilter{Email: &email}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *LandlordRepositoryImpl) applyFilter(query *gorm.DB, filter models.PartyFilter) *gorm.DB {
	query = applyPartyFilter(query, filter)
	if filter.PropertyID != nil {
		query = query.Where("id IN (?)", r.DB.Model(&models.Property{}).Select("landlord_id").Where("id = ?", *filter.PropertyID))
	}
	return query
}

// ByFilter retrieves landlords based on filter criteria
func (r *LandlordRepositoryImpl) ByFilter(ctx context.Context, filter models.PartyFilter, orderBy string, limit, offset int) ([]*models.Landlord, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Landlord{}), filter)
	query = paginate(query, orderBy, "created_at DESC, id DESC", limit, offset)

	var rows []*models.Landlord
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of landlords matching filter
func (r *LandlordRepositoryImpl) Count(ctx context.Context, filter models.PartyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Landlord{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any landlord matches the filter
func (r *LandlordRepositoryImpl) Exists(ctx context.Context, filter models.PartyFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
