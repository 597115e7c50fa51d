package model

import "time"

// Message 消息主体。sender 与 creation 创建后不可变，只有 text 可更新。
type Message struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SenderID  string    `gorm:"type:varchar(36);index:idx_msg_sender_created;not null" json:"sender_id"`
	Text      string    `gorm:"type:varchar(140);not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_msg_created;index:idx_msg_sender_created" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Message) TableName() string { return "messages" }
