package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BackendUsage 单个后端账号的用量快照；Error 非空表示该账号本轮不可达.
type BackendUsage struct {
	AccountID uint   `json:"account_id"`
	Label     string `json:"label"`
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Available int64  `json:"available"`
	Error     string `json:"error,omitempty"`
}

// UsageStats 每用户的用量汇总，账号明细以 JSON 文本存储保持实现简单.
type UsageStats struct {
	ID            uint  `gorm:"primaryKey"  json:"id"`
	UserID        uint  `gorm:"uniqueIndex" json:"user_id"`
	FileCount     int64 `json:"file_count"`
	FolderCount   int64 `json:"folder_count"`
	TotalCapacity int64 `json:"total_capacity"`
	UsedCapacity  int64 `json:"used_capacity"`
	// 每账号快照，serialize 后落库
	BackendsJSON string    `gorm:"type:text" json:"-"`
	RefreshedAt  time.Time `json:"refreshed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetBackends 序列化账号明细.
func (s *UsageStats) SetBackends(usages []BackendUsage) error {
	b, err := json.Marshal(usages)
	if err != nil {
		return fmt.Errorf("marshal backend usages: %w", err)
	}

	s.BackendsJSON = string(b)

	return nil
}

// Backends 反序列化账号明细.
func (s *UsageStats) Backends() ([]BackendUsage, error) {
	if s.BackendsJSON == "" {
		return nil, nil
	}

	var usages []BackendUsage
	if err := json.Unmarshal([]byte(s.BackendsJSON), &usages); err != nil {
		return nil, fmt.Errorf("unmarshal backend usages: %w", err)
	}

	return usages, nil
}
