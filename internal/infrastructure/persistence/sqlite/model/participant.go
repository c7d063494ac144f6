package model

import "time"

type Participant struct {
	ParticipantID uint64     `gorm:"column:participant_id;primaryKey;autoIncrement"`
	Handle        string     `gorm:"column:handle;type:text;not null;uniqueIndex"`
	ScreenName    string     `gorm:"column:screen_name;type:text;not null"`
	ProfileImage  string     `gorm:"column:profile_image;type:text;not null;default:''"`
	IsFollower    bool       `gorm:"column:is_follower;not null;default:0"`
	FollowedAt    *time.Time `gorm:"column:followed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

func (Participant) TableName() string {
	return "participants"
}
