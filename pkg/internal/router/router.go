// Package router 管理路由配置，用于设置 HTTP 服务的路由规则.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAll 把全部业务路由挂到传入的路由组（假定上层用 /api/v1）.
func RegisterAll(g *gin.RouterGroup) {
	RegisterFilesRoutes(g)
	RegisterFoldersRoutes(g)
	RegisterStatsRoutes(g)
	RegisterAccountsRoutes(g)
	RegisterHealthCheckRoute(g)
	RegisterSchedulerRoutes(g)
}
