package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxUploadsPerUser 每用户并发上传上限.
	DefaultMaxUploadsPerUser = 3
	// DefaultProgressStepPercent 进度事件的百分比桶步长.
	DefaultProgressStepPercent = 5
	// DefaultSessionGraceSeconds 会话终态后保留进度通道的宽限时间（秒）.
	DefaultSessionGraceSeconds = 30
)

// UploadConfig 上传准入与进度推送配置.
type UploadConfig struct {
	MaxPerUser      int `mapstructure:"max_per_user"     rule:"min=1,max=64"`
	ProgressStepPct int `mapstructure:"progress_step"    rule:"min=1,max=50"`
	SessionGraceSec int `mapstructure:"session_grace"    rule:"min=1,max=3600"`
}

// GraceDuration 返回会话宽限时长.
func (c *UploadConfig) GraceDuration() time.Duration {
	return time.Duration(c.SessionGraceSec) * time.Second
}

func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.max_per_user", DefaultMaxUploadsPerUser)
	v.SetDefault("upload.progress_step", DefaultProgressStepPercent)
	v.SetDefault("upload.session_grace", DefaultSessionGraceSeconds)
}
