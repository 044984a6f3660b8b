package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/estatedesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncomeRepositoryImpl implements IncomeRepository interface
type IncomeRepositoryImpl struct {
	*BaseRepository[models.Income, models.LedgerFilter]
}

// NewIncomeRepository creates a new income repository
func NewIncomeRepository(db *gorm.DB) IncomeRepository {
	return &IncomeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Income, models.LedgerFilter](db),
	}
}

// ByFilter retrieves incomes based on filter criteria
func (r *IncomeRepositoryImpl) ByFilter(ctx context.Context, filter models.LedgerFilter, orderBy string, limit, offset int) ([]*models.Income, error) {
	db := r.getDB(ctx)
	query := applyLedgerFilter(db.Model(&models.Income{}), filter)
	query = paginate(query, orderBy, "occurred_at DESC, id DESC", limit, offset)

	var rows []*models.Income
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of incomes matching filter
func (r *IncomeRepositoryImpl) Count(ctx context.Context, filter models.LedgerFilter) (int64, error) {
	db := r.getDB(ctx)
	query := applyLedgerFilter(db.Model(&models.Income{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any income matches the filter
func (r *IncomeRepositoryImpl) Exists(ctx context.Context, filter models.LedgerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Sum totals the amounts of incomes matching filter
func (r *IncomeRepositoryImpl) Sum(ctx context.Context, filter models.LedgerFilter) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	total, err := sumAmount(applyLedgerFilter(db.Model(&models.Income{}), filter))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum incomes: %w", err)
	}
	return total, nil
}
