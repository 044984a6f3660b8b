package repository

import (
	"github.com/amirphl/estatedesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// applyLedgerFilter applies filter criteria shared by incomes and expenses
func applyLedgerFilter(query *gorm.DB, filter models.LedgerFilter) *gorm.DB {
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.OccurredAfter != nil {
		query = query.Where("occurred_at >= ?", *filter.OccurredAfter)
	}
	if filter.OccurredBefore != nil {
		query = query.Where("occurred_at < ?", *filter.OccurredBefore)
	}
	return query
}

// sumAmount totals the amount column of the filtered query
func sumAmount(query *gorm.DB) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total").Scan(&out).Error; err != nil {
		return decimal.Zero, err
	}
	return out.Total, nil
}
