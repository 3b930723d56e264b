package configs

import "github.com/spf13/viper"

// AuthConfig 身份认证配置.
// 服务假设部署在可信网关之后，用户身份由网关注入的 X-User 请求头给出.
type AuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`         // 是否强制要求用户头
	UserHeader    string   `mapstructure:"user_header"`     // 携带用户标识的请求头
	SkipPaths     []string `mapstructure:"skip_paths"`      // 跳过校验的路径前缀
	DevAllowQuery bool     `mapstructure:"dev_allow_query"` // 开发模式允许 query user 兜底
}

// setDefaults 设置认证配置的默认值.
func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.user_header", "X-User")
	v.SetDefault("auth.skip_paths", []string{"/health", "/metrics", "/api/v1/health", "/api/v1/public"})
	v.SetDefault("auth.dev_allow_query", false)
}
