package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account kinds
const (
	AccountKindBank = "bank"
	AccountKindCash = "cash"
)

// Account is a bookkeeping account. Balance is only changed inside the same
// transaction that records the income or expense moving it.
type Account struct {
	ID             string          `gorm:"primaryKey;size:32" json:"id"`
	UUID           uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Kind           string          `gorm:"size:16;not null" json:"kind"`
	Currency       string          `gorm:"size:3;not null" json:"currency"`
	LandlordID     *string         `gorm:"size:32;index" json:"landlord_id,omitempty"`
	OpeningBalance decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"opening_balance"`
	Balance        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"balance"`
	AllowOverdraft *bool           `gorm:"default:false" json:"allow_overdraft"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Account) TableName() string { return "accounts" }

// BeforeCreate ensures UUID and timestamps are set
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.AllowOverdraft == nil {
		a.AllowOverdraft = utils.ToPtr(false)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	return nil
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID         *string
	LandlordID *string
	Kind       *string
}
