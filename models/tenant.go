package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tenant rents a property; the current lease is stored inline
type Tenant struct {
	ID   string    `gorm:"primaryKey;size:32" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Contact
	PropertyID  *string             `gorm:"size:32;index" json:"property_id,omitempty"`
	LeaseStart  *time.Time          `json:"lease_start,omitempty"`
	LeaseEnd    *time.Time          `json:"lease_end,omitempty"`
	MonthlyRent decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"monthly_rent"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Property *Property `gorm:"foreignKey:PropertyID;references:ID" json:"property,omitempty"`
}

func (Tenant) TableName() string { return "tenants" }

// BeforeCreate ensures UUID and timestamps are set
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return nil
}
