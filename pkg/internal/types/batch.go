package types

import "errors"

// ErrAmbiguousItem 批量项必须且只能指定 file_id 或 folder_id 之一.
var ErrAmbiguousItem = errors.New("batch item must carry exactly one of file_id or folder_id")

// BatchItem 批量操作中的一个目标：文件或文件夹，二选一.
type BatchItem struct {
	FileID   *uint `json:"file_id,omitempty"`
	FolderID *uint `json:"folder_id,omitempty"`
}

// Validate 校验标记的互斥性.
func (it BatchItem) Validate() error {
	if (it.FileID == nil) == (it.FolderID == nil) {
		return ErrAmbiguousItem
	}

	return nil
}

// Kind 返回 "file" 或 "folder"；非法项返回空串.
func (it BatchItem) Kind() string {
	switch {
	case it.FileID != nil && it.FolderID == nil:
		return "file"
	case it.FolderID != nil && it.FileID == nil:
		return "folder"
	default:
		return ""
	}
}

// BatchDeleteRequest 混合批量删除请求.
type BatchDeleteRequest struct {
	Items []BatchItem `binding:"required" json:"items"`
}

// BatchUpdateItem 批量更新的一项：目标 + 变更字段.
type BatchUpdateItem struct {
	BatchItem

	Name        *string `json:"name,omitempty"`
	MoveTo      *uint   `json:"move_to,omitempty"` // 目标文件夹，0 表示根
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// BatchUpdateRequest 混合批量更新请求.
type BatchUpdateRequest struct {
	Items      []BatchUpdateItem `binding:"required" json:"items"`
	OnConflict ConflictPolicy    `json:"on_conflict,omitempty"`
}

// BatchResult 与输入项一一对应的结果，顺序保持.
type BatchResult struct {
	Kind    string `json:"kind"` // "file" | "folder"
	ID      uint   `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchResponse 批量操作响应.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
}
