package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Property types
const (
	PropertyTypeApartment  = "apartment"
	PropertyTypeHouse      = "house"
	PropertyTypeCommercial = "commercial"
	PropertyTypeLand       = "land"
)

// Property statuses
const (
	PropertyStatusAvailable   = "available"
	PropertyStatusRented      = "rented"
	PropertyStatusMaintenance = "maintenance"
)

// Property is a rentable unit owned by a landlord.
// PhotoURLs point at images already uploaded to the external image host.
type Property struct {
	ID          string          `gorm:"primaryKey;size:32" json:"id"`
	UUID        uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Address     string          `gorm:"size:512;not null" json:"address"`
	City        string          `gorm:"size:128;not null;index" json:"city"`
	Type        string          `gorm:"size:32;not null;index" json:"type"`
	Status      string          `gorm:"size:32;not null;index" json:"status"`
	Bedrooms    int             `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms   int             `gorm:"not null;default:0" json:"bathrooms"`
	AreaSqm     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"area_sqm"`
	MonthlyRent decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"monthly_rent"`
	PhotoURLs   []string        `gorm:"serializer:json;type:text" json:"photo_urls"`
	LandlordID  string          `gorm:"size:32;not null;index" json:"landlord_id"`
	AgentID     *string         `gorm:"size:32;index" json:"agent_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Landlord *Landlord `gorm:"foreignKey:LandlordID;references:ID" json:"landlord,omitempty"`
	Agent    *Agent    `gorm:"foreignKey:AgentID;references:ID" json:"agent,omitempty"`
}

func (Property) TableName() string { return "properties" }

// BeforeCreate ensures UUID, status and timestamps are set
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PropertyStatusAvailable
	}
	if p.PhotoURLs == nil {
		p.PhotoURLs = []string{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	return nil
}

// PropertyFilter represents filter criteria for property queries
type PropertyFilter struct {
	ID            *string
	Search        *string
	Status        *string
	Type          *string
	City          *string
	LandlordID    *string
	AgentID       *string
	MinRent       *decimal.Decimal
	MaxRent       *decimal.Decimal
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// IsValidPropertyType reports whether t is a known property type
func IsValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeCommercial, PropertyTypeLand:
		return true
	}
	return false
}

// IsValidPropertyStatus reports whether s is a known property status
func IsValidPropertyStatus(s string) bool {
	switch s {
	case PropertyStatusAvailable, PropertyStatusRented, PropertyStatusMaintenance:
		return true
	}
	return false
}
