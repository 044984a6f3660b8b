package models

import (
	"time"

	"gorm.io/gorm"
)

// Email log statuses
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailLog records every transactional email attempt
type EmailLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Recipient string    `gorm:"size:255;not null;index" json:"recipient"`
	Subject   string    `gorm:"size:255;not null" json:"subject"`
	Template  string    `gorm:"size:64;not null;index" json:"template"`
	EntityID  *string   `gorm:"size:32;index" json:"entity_id,omitempty"`
	Status    string    `gorm:"size:16;not null;index" json:"status"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`
	SentAt    time.Time `gorm:"not null;index" json:"sent_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (EmailLog) TableName() string { return "email_logs" }

func (l *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.SentAt.IsZero() {
		l.SentAt = l.CreatedAt
	}
	return nil
}

// EmailLogFilter represents filter criteria for email log queries
type EmailLogFilter struct {
	Recipient *string
	Status    *string
	Template  *string
	EntityID  *string
}
