package model

import "time"

// User 用户（login / email 全局唯一）
type User struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Login     string  `gorm:"type:varchar(100);uniqueIndex:ux_user_login;not null" json:"login"`
	Email     string  `gorm:"type:varchar(255);uniqueIndex:ux_user_email;not null" json:"email"`
	FirstName *string `gorm:"type:varchar(100)" json:"first_name,omitempty"`
	LastName  *string `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_user_created" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
