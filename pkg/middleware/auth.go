package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/configs"
)

// AuthMiddleware 校验可信网关注入的用户头.
//   - 要求存在 X-User（或配置的等价请求头）
//   - 支持通过配置跳过某些路径（如 /metrics, /health, 公共文件）
//   - 开发模式可允许 query user 兜底（由 configs.auth.dev_allow_query 控制）.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	if !conf.Enabled {
		return passThrough()
	}

	header := conf.UserHeader
	if header == "" {
		header = "X-User"
	}

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		user := strings.TrimSpace(c.GetHeader(header))
		if user == "" {
			if conf.DevAllowQuery && c.Query("user") != "" {
				c.Next()
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
