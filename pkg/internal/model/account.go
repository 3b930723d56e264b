package model

import "time"

// BackendAccount 一个远端存储账号（S3 兼容端点 + 固定容量）.
// 分配顺序由 Position 决定，随用户删除级联清除.
type BackendAccount struct {
	ID     uint `gorm:"primaryKey"                          json:"id"`
	UserID uint `gorm:"index:idx_account_user_pos;index"    json:"user_id"`
	// 用户可读的账号名，配额报表按它聚合
	Label           string `gorm:"size:255"                json:"label"`
	Endpoint        string `gorm:"size:512"                json:"endpoint"`
	AccessKeyID     string `gorm:"size:255"                json:"-"`
	SecretAccessKey string `gorm:"size:255"                json:"-"`
	Bucket          string `gorm:"size:255"                json:"bucket"`
	UseSSL          bool   `json:"use_ssl"`
	// 账号容量（字节），0 表示采用全局默认
	Capacity int64 `json:"capacity"`
	// 用户账号列表内的顺序，首次分配从最小 Position 开始
	Position int `gorm:"index:idx_account_user_pos" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
