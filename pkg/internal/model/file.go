package model

import "time"

// File 文件元数据模型，字节本体存放在某个后端账号的对象存储里.
type File struct {
	ID      uint `gorm:"primaryKey"                                     json:"id"`
	OwnerID uint `gorm:"index;uniqueIndex:idx_file_owner_parent_name"   json:"owner_id"`
	// nil 表示根目录
	ParentID *uint  `gorm:"uniqueIndex:idx_file_owner_parent_name"       json:"parent_id"`
	Name     string `gorm:"size:512;uniqueIndex:idx_file_owner_parent_name" json:"name"`
	// 不含点的扩展名；无扩展名文件为空串
	Extension string `gorm:"size:64;uniqueIndex:idx_file_owner_parent_name" json:"extension"`
	Size      int64  `gorm:"index"                                          json:"size"`

	// 承载字节的后端账号与账号内对象键
	AccountID uint   `gorm:"index;uniqueIndex:idx_file_account_key"   json:"account_id"`
	ObjectKey string `gorm:"size:1024;uniqueIndex:idx_file_account_key" json:"object_key"`
	// 远端侧的父引用（部分后端以前缀模拟目录）
	RemoteParentID string `gorm:"size:1024" json:"remote_parent_id,omitempty"`

	IsPublic    bool   `json:"is_public"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// 公共文件的本地边缘缓存指针，清扫任务负责失效
	CachedPath string     `gorm:"size:1024" json:"-"`
	CachedAt   *time.Time `json:"-"`

	UploadedAt time.Time `gorm:"index" json:"uploaded_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName 返回带扩展名的完整文件名.
func (f *File) FullName() string {
	if f.Extension == "" {
		return f.Name
	}

	return f.Name + "." + f.Extension
}
