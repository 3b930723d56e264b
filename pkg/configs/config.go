// Package configs 管理应用程序配置，包括元数据库、后端存储账号、消息队列等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本号.
const AppVersion = "1.0.0"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB       DBConfig             `mapstructure:"db"`       // 元数据库配置
		Backends BackendsConfig       `mapstructure:"backends"` // 远端后端存储默认配置
		KV       KVConfig             `mapstructure:"kv"`       // 键值存储配置
		MQ       MQConfig             `mapstructure:"mq"`       // 消息队列配置
		Server   ServerConfig         `mapstructure:"server"`   // 服务器配置
		Log      LogConfig            `mapstructure:"log"`      // 日志配置
		Upload   UploadConfig         `mapstructure:"upload"`   // 上传准入与进度配置
		Cache    EdgeCacheConfig      `mapstructure:"cache"`    // 公共文件本地边缘缓存配置
		Metrics  MetricsConfig        `mapstructure:"metrics"`  // 监控配置
		Tracing  TracingConfig        `mapstructure:"tracing"`  // 追踪配置
		Breaker  CircuitBreakerConfig `mapstructure:"breaker"`  // 后端调用熔断配置
		Limit    RateLimitConfig      `mapstructure:"limit"`    // HTTP 速率限制配置
		Auth     AuthConfig           `mapstructure:"auth"`     // 身份认证配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
func InitConfig(path string) error {
	appViper = viper.New()
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		appViper.SetConfigFile(path)
	} else {
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	appViper.AutomaticEnv()
	appViper.SetEnvPrefix("OMNIVAULT")
	appViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := appViper.ReadInConfig(); err != nil {
		// 没有配置文件时退回默认值 + 环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := appViper.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	(&ServerConfig{}).setDefaults(v)
	(&DBConfig{}).setDefaults(v)
	(&BackendsConfig{}).setDefaults(v)
	(&KVConfig{}).setDefaults(v)
	(&MQConfig{}).setDefaults(v)
	(&LogConfig{}).setDefaults(v)
	(&UploadConfig{}).setDefaults(v)
	(&EdgeCacheConfig{}).setDefaults(v)
	(&MetricsConfig{}).setDefaults(v)
	(&TracingConfig{}).setDefaults(v)
	(&CircuitBreakerConfig{}).setDefaults(v)
	(&RateLimitConfig{}).setDefaults(v)
	(&AuthConfig{}).setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		if err := v.Unmarshal(&globalConfig); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
		}
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
