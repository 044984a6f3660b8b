package models

import "time"

// SequenceCounter stores the last issued sequence value for one entity type within one calendar month.
// Rows are created lazily by the allocator and never deleted.
type SequenceCounter struct {
	Key        string    `gorm:"column:counter_key;primaryKey;size:96" json:"key"`
	EntityType string    `gorm:"size:64;not null;uniqueIndex:uk_sequence_counters_type_period,priority:1" json:"entity_type"`
	YearMonth  string    `gorm:"size:6;not null;uniqueIndex:uk_sequence_counters_type_period,priority:2" json:"year_month"`
	Value      int64     `gorm:"not null" json:"value"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// SequenceCounterFilter represents filter criteria for counter queries
type SequenceCounterFilter struct {
	Key        *string
	EntityType *string
	YearMonth  *string
}

// SequenceCounterKey builds the primary key of the counter row for entityType in yearMonth
func SequenceCounterKey(entityType, yearMonth string) string {
	return entityType + "_" + yearMonth
}
