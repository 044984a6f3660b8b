package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry holds the columns shared by incomes and expenses
type LedgerEntry struct {
	ID         string          `gorm:"primaryKey;size:32" json:"id"`
	UUID       uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	AccountID  string          `gorm:"size:32;not null;index" json:"account_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Category   string          `gorm:"size:64;not null;index" json:"category"`
	PropertyID *string         `gorm:"size:32;index" json:"property_id,omitempty"`
	Note       *string         `gorm:"type:text" json:"note,omitempty"`
	OccurredAt time.Time       `gorm:"not null;index" json:"occurred_at"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (e *LedgerEntry) prepare() {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = e.CreatedAt
	}
}

// Income is money received into an account, usually rent
type Income struct {
	LedgerEntry
	TenantID *string `gorm:"size:32;index" json:"tenant_id,omitempty"`
}

func (Income) TableName() string { return "incomes" }

func (i *Income) BeforeCreate(tx *gorm.DB) error {
	i.prepare()
	return nil
}

// Expense is money paid out of an account
type Expense struct {
	LedgerEntry
	Payee *string `gorm:"size:255" json:"payee,omitempty"`
}

func (Expense) TableName() string { return "expenses" }

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	e.prepare()
	return nil
}

// LedgerFilter represents filter criteria for income and expense queries
type LedgerFilter struct {
	AccountID      *string
	PropertyID     *string
	Category       *string
	OccurredAfter  *time.Time
	OccurredBefore *time.Time
}

// LedgerTotals is the aggregate of incomes and expenses for one account and period
type LedgerTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}
