package model

import "time"

// Receiver 消息接收者索引（ReceiversIndex）中的一条记录：user 的时间线应包含 message。
// (message_id, user_id) 唯一键让追加/删除天然幂等，任务重投不会产生重复。
type Receiver struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	MessageID string `gorm:"type:varchar(36);index:idx_receiver_msg;uniqueIndex:ux_receiver_msg_user;not null"`
	UserID    string `gorm:"type:varchar(36);index:idx_receiver_user_created;uniqueIndex:ux_receiver_msg_user;not null"`
	// 时间线按接收记录的创建时间倒序
	CreatedAt time.Time `gorm:"index:idx_receiver_user_created"`
}

func (Receiver) TableName() string { return "receivers" }
