package configs

import (
	"github.com/spf13/viper"
)

const (
	// DefaultAccountCapacity 单个后端账号的固定容量（15 GiB）.
	DefaultAccountCapacity = 15 << 30
	// DefaultBackendRegion 默认区域.
	DefaultBackendRegion = "us-east-1"
	// DefaultQuotaCacheTTLSeconds 配额快照缓存时长（秒）.
	DefaultQuotaCacheTTLSeconds = 30
	// DefaultDeleteConcurrency 单个后端分组内远端删除的并发上限.
	DefaultDeleteConcurrency = 8
)

// BackendsConfig 远端后端存储的全局默认配置.
// 每个用户挂载的账号（端点、密钥、桶、容量）保存在元数据库中；
// 此处只配置对所有账号生效的通用参数.
type BackendsConfig struct {
	Region               string `mapstructure:"region"`                  // 默认区域
	AccountCapacity      int64  `mapstructure:"account_capacity"`        // 账号容量（字节），DB 中未指定时使用
	QuotaCacheTTLSeconds int    `mapstructure:"quota_cache_ttl_seconds"` // 配额快照缓存时长
	DeleteConcurrency    int    `mapstructure:"delete_concurrency"       rule:"min=1,max=64"`
}

// setDefaults 设置后端存储配置的默认值.
func (c *BackendsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("backends.region", DefaultBackendRegion)
	v.SetDefault("backends.account_capacity", int64(DefaultAccountCapacity))
	v.SetDefault("backends.quota_cache_ttl_seconds", DefaultQuotaCacheTTLSeconds)
	v.SetDefault("backends.delete_concurrency", DefaultDeleteConcurrency)
}
