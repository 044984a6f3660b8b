package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/estatedesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseRepositoryImpl implements ExpenseRepository interface
type ExpenseRepositoryImpl struct {
	*BaseRepository[models.Expense, models.LedgerFilter]
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &ExpenseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Expense, models.LedgerFilter](db),
	}
}

// ByFilter retrieves expenses based on filter criteria
func (r *ExpenseRepositoryImpl) ByFilter(ctx context.Context, filter models.LedgerFilter, orderBy string, limit, offset int) ([]*models.Expense, error) {
	db := r.getDB(ctx)
	query := applyLedgerFilter(db.Model(&models.Expense{}), filter)
	query = paginate(query, orderBy, "occurred_at DESC, id DESC", limit, offset)

	var rows []*models.Expense
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of expenses matching filter
func (r *ExpenseRepositoryImpl) Count(ctx context.Context, filter models.LedgerFilter) (int64, error) {
	db := r.getDB(ctx)
	query := applyLedgerFilter(db.Model(&models.Expense{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any expense matches the filter
func (r *ExpenseRepositoryImpl) Exists(ctx context.Context, filter models.LedgerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Sum totals the amounts of expenses matching filter
func (r *ExpenseRepositoryImpl) Sum(ctx context.Context, filter models.LedgerFilter) (decimal.Decimal, error) {
	db := r.getDB(ctx)
	total, err := sumAmount(applyLedgerFilter(db.Model(&models.Expense{}), filter))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}
