package repository

import (
	"context"
	"strings"

	"github.com/amirphl/estatedesk/models"
	"gorm.io/gorm"
)

// AgentRepositoryImpl implements AgentRepository interface
type AgentRepositoryImpl struct {
	*BaseRepository[models.Agent, models.PartyFilter]
}

// NewAgentRepository creates a new agent repository
func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &AgentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Agent, models.PartyFilter](db),
	}
}

// ByEmail retrieves a agent by email, case-insensitively
func (r *AgentRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Agent, error) {
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
func (r *AgentRepositoryImpl) applyFilter(query *gorm.DB, filter models.PartyFilter) *gorm.DB {
	query = applyPartyFilter(query, filter)
	if filter.PropertyID != nil {
		query = query.Where("id IN (?)", r.DB.Model(&models.Property{}).Select("agent_id").Where("id = ?", *filter.PropertyID))
	}
	return query
}

// ByFilter retrieves agents based on filter criteria
func (r *AgentRepositoryImpl) ByFilter(ctx context.Context, filter models.PartyFilter, orderBy string, limit, offset int) ([]*models.Agent, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Agent{}), filter)
	query = paginate(query, orderBy, "created_at DESC, id DESC", limit, offset)

	var rows []*models.Agent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of agents matching filter
func (r *AgentRepositoryImpl) Count(ctx context.Context, filter models.PartyFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Agent{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any agent matches the filter
func (r *AgentRepositoryImpl) Exists(ctx context.Context, filter models.PartyFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
