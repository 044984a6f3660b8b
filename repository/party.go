package repository

import (
	"strings"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// applyPartyFilter applies the filter fields shared by landlords, tenants and agents
func applyPartyFilter(query *gorm.DB, filter models.PartyFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Email != nil {
		query = query.Where("email = ?", strings.ToLower(*filter.Email))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where("(LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?)", term, term, term)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// paginate applies ordering and pagination the same way for every repository
func paginate(query *gorm.DB, orderBy, defaultOrder string, limit, offset int) *gorm.DB {
	if orderBy == "" {
		orderBy = defaultOrder
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
