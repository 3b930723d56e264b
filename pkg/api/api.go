// Package api 定义 HTTP 服务的接口挂载.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/router"
)

// RegisterGroup 把业务路由挂到 /api/v1 下.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAll(e.Group("/api/v1"))

	return e
}
