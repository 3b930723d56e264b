// Package types 定义 HTTP 层的请求/响应结构.
package types

import "time"

// ConflictPolicy 名字冲突处理策略.
type ConflictPolicy string

const (
	// ConflictRename 追加 " (k)" 计数器得到空闲名.
	ConflictRename ConflictPolicy = "rename"
	// ConflictOverwrite 先删除同名冲突项（文件夹递归），再占用原名.
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Valid 策略合法性检查，空串按 rename 处理.
func (p ConflictPolicy) Valid() bool {
	return p == "" || p == ConflictRename || p == ConflictOverwrite
}

// FileInfo 单个文件的对外视图.
type FileInfo struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`      // 不含扩展名
	Extension   string    `json:"extension"` // 不含点
	FullName    string    `json:"full_name"`
	Size        int64     `json:"size"`
	FolderID    *uint     `json:"folder_id,omitempty"` // nil 表示根目录
	Account     string    `json:"account"`             // 承载字节的后端账号 Label
	IsPublic    bool      `json:"is_public"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// UploadFileResponse 上传完成响应.
type UploadFileResponse struct {
	File      FileInfo `json:"file"`
	SessionID string   `json:"session_id"`
	// 同一请求中被拒绝的多余文件部分
	Rejected []RejectedPart `json:"rejected,omitempty"`
}

// RejectedPart 同请求里未被处理的多余 multipart 文件部分.
type RejectedPart struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// UpdateFileRequest 文件重命名/移动/描述/公共标记更新.
// 指针字段区分"未设置"与零值.
type UpdateFileRequest struct {
	Name        *string        `json:"name,omitempty"`      // 新名（可带扩展名）
	FolderID    *uint          `json:"folder_id,omitempty"` // 目标文件夹，0 表示根
	Description *string        `json:"description,omitempty"`
	IsPublic    *bool          `json:"is_public,omitempty"`
	OnConflict  ConflictPolicy `json:"on_conflict,omitempty"`
}

// ListFilesResponse 目录列表响应.
type ListFilesResponse struct {
	Folders []FolderInfo `json:"folders"`
	Files   []FileInfo   `json:"files"`
}
