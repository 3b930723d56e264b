package router

import (
	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/handle"
)

// RegisterFilesRoutes 注册文件操作相关路由.
func RegisterFilesRoutes(g *gin.RouterGroup) {
	filesRoutes := g.Group("/files")
	{
		// 流式 multipart 上传，一次请求一个文件
		filesRoutes.POST("", handle.UploadFile)

		// 上传进度 SSE 订阅
		filesRoutes.GET("/progress/:session", handle.UploadProgress)

		// 单个文件操作
		singleGroup := filesRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetFile)
			singleGroup.PATCH("", handle.UpdateFile)
			singleGroup.DELETE("", handle.DeleteFile)
			singleGroup.GET("/download", handle.DownloadFile)
		}

		// 批量操作，响应与请求项一一对应
		batchGroup := filesRoutes.Group("/batch")
		{
			batchGroup.DELETE("", handle.BatchDelete)
			batchGroup.PATCH("", handle.BatchUpdate)
		}
	}

	// 公开文件直链，绕过身份校验，走边缘缓存
	g.GET("/public/:id", handle.StreamPublicFile)
}
