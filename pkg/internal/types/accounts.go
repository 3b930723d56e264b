package types

// AccountInfo 后端账号的对外视图，不带凭证.
type AccountInfo struct {
	ID       uint   `json:"id"`
	Label    string `json:"label"`
	Endpoint string `json:"endpoint"`
	Bucket   string `json:"bucket"`
	Capacity int64  `json:"capacity"`
	Position int    `json:"position"`
}

// AddAccountRequest 挂载一个后端账号.
type AddAccountRequest struct {
	Label           string `binding:"required" json:"label"`
	Endpoint        string `binding:"required" json:"endpoint"`
	AccessKeyID     string `binding:"required" json:"access_key_id"`
	SecretAccessKey string `binding:"required" json:"secret_access_key"`
	Bucket          string `binding:"required" json:"bucket"`
	UseSSL          bool   `json:"use_ssl"`
	// 容量（字节），0 使用全局默认
	Capacity int64 `json:"capacity"`
}
