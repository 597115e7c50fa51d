package model

import "time"

// Fan 粉丝边（user 的粉丝是 fan），相当于 user 的粉丝索引（FollowersIndex）中的一条记录。
// 冗余自 Follow，两边分两个事务写入，弱一致。
type Fan struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	UserID string `gorm:"type:varchar(36);index:idx_fan_user;index:idx_fan_pair,unique;not null"`
	FanID  string `gorm:"type:varchar(36);not null;index:idx_fan_pair,unique"`
	// 游标扫描按 (created_at, id) 全序翻页
	CreatedAt time.Time `gorm:"index:idx_fan_user_created"`
	UpdatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
