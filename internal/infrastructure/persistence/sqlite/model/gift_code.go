package model

import "time"

type GiftCode struct {
	GiftCodeID    uint64     `gorm:"column:gift_code_id;primaryKey;autoIncrement"`
	Code          string     `gorm:"column:code;type:text;not null;uniqueIndex"`
	EncryptedCode string     `gorm:"column:encrypted_code;type:text;not null"`
	Amount        int        `gorm:"column:amount;not null"`
	IsUsed        bool       `gorm:"column:is_used;not null;default:0"`
	UsedAt        *time.Time `gorm:"column:used_at"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	Note          *string    `gorm:"column:note;type:text"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

func (GiftCode) TableName() string {
	return "gift_codes"
}
