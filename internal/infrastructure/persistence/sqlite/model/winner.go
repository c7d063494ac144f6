package model

import "time"

// Winner binds one participant to one gift code. The unique indexes on
// participant_id and gift_code_id are the store-level guarantee that neither
// is ever bound twice, whatever races the application layer loses.
type Winner struct {
	WinnerID      uint64     `gorm:"column:winner_id;primaryKey;autoIncrement"`
	ParticipantID uint64     `gorm:"column:participant_id;not null;uniqueIndex"`
	GiftCodeID    uint64     `gorm:"column:gift_code_id;not null;uniqueIndex"`
	EntryID       uint64     `gorm:"column:entry_id;not null"`
	Token         string     `gorm:"column:token;type:text;not null;uniqueIndex"`
	Status        string     `gorm:"column:status;type:text;not null"`
	MessageID     string     `gorm:"column:message_id;type:text;not null;default:''"`
	NotifiedAt    *time.Time `gorm:"column:notified_at"`
	ConfirmedAt   *time.Time `gorm:"column:confirmed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

func (Winner) TableName() string {
	return "winners"
}
