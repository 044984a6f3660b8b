package models

import (
	"time"

	"github.com/amirphl/estatedesk/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is a field agent who shows and manages properties on site
type Agent struct {
	ID   string    `gorm:"primaryKey;size:32" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Contact
	Region   *string `gorm:"size:128" json:"region,omitempty"`
	IsActive *bool   `gorm:"default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Agent) TableName() string { return "agents" }

// BeforeCreate ensures UUID and timestamps are set
func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.IsActive == nil {
		a.IsActive = utils.ToPtr(true)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	return nil
}
