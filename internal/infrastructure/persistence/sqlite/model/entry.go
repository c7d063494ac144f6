package model

import "time"

type Entry struct {
	EntryID        uint64    `gorm:"column:entry_id;primaryKey;autoIncrement"`
	ParticipantID  uint64    `gorm:"column:participant_id;not null;index"`
	SourceEventID  string    `gorm:"column:source_event_id;type:text;not null"`
	SourceEventAt  time.Time `gorm:"column:source_event_at;not null"`
	IsValid        bool      `gorm:"column:is_valid;not null;default:0"`
	InvalidReason  *string   `gorm:"column:invalid_reason;type:text"`
	CorrelationKey *string   `gorm:"column:correlation_key;type:text;index"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index"`
}

func (Entry) TableName() string {
	return "entries"
}
