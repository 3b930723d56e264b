package types

import "time"

// BackendStatsItem 单个后端账号的用量行；Error 非空表示本轮不可达.
type BackendStatsItem struct {
	AccountID uint   `json:"account_id"`
	Label     string `json:"label"`
	Total     int64  `json:"total,omitempty"`
	Used      int64  `json:"used,omitempty"`
	Available int64  `json:"available,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatsResponse 用户用量汇总.
type StatsResponse struct {
	FileCount     int64              `json:"file_count"`
	FolderCount   int64              `json:"folder_count"`
	TotalCapacity int64              `json:"total_capacity"`
	UsedCapacity  int64              `json:"used_capacity"`
	Backends      []BackendStatsItem `json:"backends"`
	RefreshedAt   time.Time          `json:"refreshed_at"`
}
