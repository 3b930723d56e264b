// Package model 定义元数据库模型.
package model

import (
	"time"
)

// User 用户模型，Name 为网关注入的用户标识（通常是邮箱）.
type User struct {
	ID   uint   `gorm:"primaryKey"             json:"id"`
	Name string `gorm:"size:255;uniqueIndex"   json:"name"`
	// 用户挂载的后端账号，按 Position 排序构成分配顺序
	Accounts []BackendAccount `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"accounts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllModels 返回参与 AutoMigrate 的全部模型.
func AllModels() []any {
	return []any{
		&User{},
		&BackendAccount{},
		&Folder{},
		&File{},
		&UsageStats{},
	}
}
