package router

import (
	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/handle"
)

// RegisterFoldersRoutes 注册文件夹相关路由.
func RegisterFoldersRoutes(g *gin.RouterGroup) {
	foldersRoutes := g.Group("/folders")
	{
		foldersRoutes.POST("", handle.CreateFolder)
		// 根目录列表
		foldersRoutes.GET("", handle.ListRoot)

		singleGroup := foldersRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.ListFolder)
			singleGroup.PATCH("", handle.UpdateFolder)
			// 递归删除整棵子树
			singleGroup.DELETE("", handle.DeleteFolder)
		}
	}
}
