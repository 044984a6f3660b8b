package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Landlord owns properties and optionally bookkeeping accounts
type Landlord struct {
	ID   string    `gorm:"primaryKey;size:32" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Contact
	CompanyName *string `gorm:"size:255" json:"company_name,omitempty"`
	TaxNumber   *string `gorm:"size:64" json:"tax_number,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Properties []Property `gorm:"foreignKey:LandlordID" json:"properties,omitempty"`
}

func (Landlord) TableName() string { return "landlords" }

// BeforeCreate ensures UUID and timestamps are set
func (l *Landlord) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == uuid.Nil {
		l.UUID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	return nil
}

// PartyFilter represents filter criteria shared by landlord, tenant and agent queries
type PartyFilter struct {
	ID            *string
	Email         *string
	Search        *string
	PropertyID    *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
