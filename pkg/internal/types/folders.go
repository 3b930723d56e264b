package types

import "time"

// FolderInfo 单个文件夹的对外视图.
type FolderInfo struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	ParentID  *uint     `json:"parent_id,omitempty"` // nil 表示根目录
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFolderRequest 新建文件夹请求.
type CreateFolderRequest struct {
	Name       string         `binding:"required" json:"name"`
	ParentID   *uint          `json:"parent_id,omitempty"` // 缺省为根目录
	OnConflict ConflictPolicy `json:"on_conflict,omitempty"`
}

// UpdateFolderRequest 文件夹重命名/移动/公共标记更新.
type UpdateFolderRequest struct {
	Name       *string        `json:"name,omitempty"`
	ParentID   *uint          `json:"parent_id,omitempty"` // 目标父目录，0 表示根
	IsPublic   *bool          `json:"is_public,omitempty"`
	OnConflict ConflictPolicy `json:"on_conflict,omitempty"`
}

// DeleteFolderResponse 递归删除结果汇总，逐项明细与计数一并返回.
type DeleteFolderResponse struct {
	DeletedFiles   int `json:"deleted_files"`
	DeletedFolders int `json:"deleted_folders"`
	// 远端删除失败、元数据保留的文件数
	FailedFiles int `json:"failed_files"`
	// 因子树还挂着失败文件而保留记录的文件夹数
	RetainedFolders int `json:"retained_folders"`
	// 每个文件/文件夹一条结果，失败项带错误信息
	Results []BatchResult `json:"results"`
}
