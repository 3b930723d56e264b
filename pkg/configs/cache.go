package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultEdgeCacheEnabled  = true               // 是否启用边缘缓存
	DefaultEdgeCacheDir      = "cache/public"     // 缓存目录
	DefaultEdgeCacheBudget   = 1 << 30            // 缓存总字节预算（1 GiB）
	DefaultEdgeCacheMaxEntry = 64 << 20           // 单个文件缓存上限（64 MiB）
	DefaultEdgeCacheTTL      = 6 * 60 * 60        // 缓存TTL（秒）
	DefaultEdgeCacheSweep    = "*/30 * * * *"     // 清理任务 cron 表达式
)

// EdgeCacheConfig 公共文件的本地边缘缓存配置.
// 缓存只镜像公开文件的字节，远端对象不受清理影响.
type EdgeCacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir"`
	Budget     int64  `mapstructure:"budget_bytes"`    // 目录总字节预算
	MaxEntry   int64  `mapstructure:"max_entry_bytes"` // 超过该大小的文件不缓存
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	SweepCron  string `mapstructure:"sweep_cron"`
}

// TTL 返回缓存条目的存活时长.
func (c *EdgeCacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c *EdgeCacheConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", DefaultEdgeCacheEnabled)
	v.SetDefault("cache.dir", DefaultEdgeCacheDir)
	v.SetDefault("cache.budget_bytes", int64(DefaultEdgeCacheBudget))
	v.SetDefault("cache.max_entry_bytes", int64(DefaultEdgeCacheMaxEntry))
	v.SetDefault("cache.ttl_seconds", DefaultEdgeCacheTTL)
	v.SetDefault("cache.sweep_cron", DefaultEdgeCacheSweep)
}
