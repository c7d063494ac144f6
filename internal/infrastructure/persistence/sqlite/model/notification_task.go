package model

import "time"

type NotificationTask struct {
	TaskID        uint64     `gorm:"column:task_id;primaryKey;autoIncrement"`
	WinnerID      uint64     `gorm:"column:winner_id;not null;uniqueIndex"`
	GiftCodeID    uint64     `gorm:"column:gift_code_id;not null"`
	Status        string     `gorm:"column:status;type:text;not null;index"`
	RetryCount    int        `gorm:"column:retry_count;not null;default:0"`
	LastError     string     `gorm:"column:last_error;type:text;not null;default:''"`
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at"`
	MessageID     string     `gorm:"column:message_id;type:text;not null;default:''"`
	SentAt        *time.Time `gorm:"column:sent_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

func (NotificationTask) TableName() string {
	return "notification_tasks"
}
