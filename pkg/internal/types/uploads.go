package types

// UploadStatus 上传会话的状态.
type UploadStatus string

const (
	UploadStatusUploading UploadStatus = "UPLOADING"
	UploadStatusCompleted UploadStatus = "COMPLETED"
	UploadStatusFailed    UploadStatus = "FAILED"
)

// Terminal 终态判断，终态事件之后通道关闭.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// ProgressEvent 上传进度事件，按进度分桶推送而非逐字节.
type ProgressEvent struct {
	FileName string       `json:"file_name"`
	Progress int          `json:"progress"` // 0-100
	Status   UploadStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
}
