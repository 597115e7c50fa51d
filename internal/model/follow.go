package model

import (
	"time"
)

// Follow 关注边（follower 关注 followed），相当于 follower 的被关注索引（FollowedIndex）中的一条记录
type Follow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `gorm:"type:varchar(36);index:idx_follow_follower;index:idx_follow_pair,unique;not null"`
	FollowedID string `gorm:"type:varchar(36);not null;index:idx_follow_followed;index:idx_follow_pair,unique"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, followed_id)
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Follow) TableName() string { return "follows" }
