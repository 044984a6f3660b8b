package repository

import (
	"context"
	"strings"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.PartyFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.PartyFilter](db),
	}
}

// ByEmail retrieves a tenant by email, case-insensitively
func (r *TenantRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Tenant, error) {
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
func (r *TenantRepositoryImpl) applyFilter(query *gorm.DB, filter models.PartyFilter) *gorm.DB {
	query = applyPartyFilter(query, filter)
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	return query
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.PartyFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)
	query = paginate(query, orderBy, "created_at DESC, id DESC", limit, offset)

	var rows []*models.Tenant
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of tenants matching filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.PartyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any tenant matches the filter
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.PartyFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
