package model

import "time"

// Folder 文件夹模型，ParentID 为 nil 表示用户根目录.
// 同一父目录下的名字靠唯一索引兜底，应用层先做冲突消解.
type Folder struct {
	ID      uint   `gorm:"primaryKey"                                       json:"id"`
	OwnerID uint   `gorm:"index;uniqueIndex:idx_folder_owner_parent_name"   json:"owner_id"`
	Name    string `gorm:"size:512;uniqueIndex:idx_folder_owner_parent_name" json:"name"`
	// nil 表示根；NULL 在唯一索引中互不冲突，根级重名由应用层探测兜底
	ParentID *uint `gorm:"uniqueIndex:idx_folder_owner_parent_name" json:"parent_id"`
	IsPublic bool  `json:"is_public"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
