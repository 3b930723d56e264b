package router

import (
	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/handle"
)

// RegisterAccountsRoutes 注册后端账号管理路由.
func RegisterAccountsRoutes(g *gin.RouterGroup) {
	accountsRoutes := g.Group("/accounts")
	{
		accountsRoutes.GET("", handle.ListAccounts)
		accountsRoutes.POST("", handle.AddAccount)
		accountsRoutes.DELETE("/:id", handle.RemoveAccount)
	}
}
