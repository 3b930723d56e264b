package queue

// ObjectRef 定位一份远端字节：账号 + 账号内对象键.
type ObjectRef struct {
	AccountID uint   `json:"account_id"`
	Account   string `json:"account,omitempty"` // 账号 Label，冗余便于离线消费
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key"`
	Size      int64  `json:"size,omitempty"`
}

// FileStoredPayload 文件字节已写入后端且元数据落库.
type FileStoredPayload struct {
	FileID   uint      `json:"file_id"`
	Owner    string    `json:"owner"`
	FileName string    `json:"file_name"`
	FolderID *uint     `json:"folder_id,omitempty"`
	Object   ObjectRef `json:"object"`
}

// FileDeletedPayload 文件已删除（远端对象与元数据）.
type FileDeletedPayload struct {
	FileID uint      `json:"file_id"`
	Owner  string    `json:"owner"`
	Object ObjectRef `json:"object"`
}

// FolderDeletedPayload 文件夹递归删除完成.
type FolderDeletedPayload struct {
	FolderID       uint   `json:"folder_id"`
	Owner          string `json:"owner"`
	DeletedFiles   int    `json:"deleted_files"`
	DeletedFolders int    `json:"deleted_folders"`
	FailedFiles    int    `json:"failed_files"` // 远端删除失败、元数据保留的文件数
}

// StatsRefreshedPayload 用量汇总已重算.
type StatsRefreshedPayload struct {
	Owner         string `json:"owner"`
	FileCount     int64  `json:"file_count"`
	FolderCount   int64  `json:"folder_count"`
	TotalCapacity int64  `json:"total_capacity"`
	UsedCapacity  int64  `json:"used_capacity"`
	Unreachable   int    `json:"unreachable"` // 本轮不可达的账号数
}
