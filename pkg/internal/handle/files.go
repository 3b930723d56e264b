package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/log"
)

// GetFile 返回单个文件的元数据.
func GetFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.GetFile(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// UpdateFile 重命名/移动/修改描述或公共标记.
func UpdateFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req types.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.UpdateFile(c.Request.Context(), user, id, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteFile 删除单个文件（远端对象与元数据）.
func DeleteFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.DeleteFile(c.Request.Context(), user, id); err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// DownloadFile 把后端对象流透传给调用方.
func DownloadFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	res, err := svc.DownloadFile(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err)

		return
	}
	defer res.Body.Close()

	streamDownload(c, res)
}

// StreamPublicFile 无鉴权拉取公开文件，命中本地边缘缓存时不回源.
func StreamPublicFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	res, err := svc.StreamPublicFile(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)

		return
	}
	defer res.Body.Close()

	if res.ETag != "" && c.GetHeader("If-None-Match") == res.ETag {
		c.Status(http.StatusNotModified)

		return
	}

	streamDownload(c, res)
}

func streamDownload(c *gin.Context, res *service.DownloadResult) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	extraHeaders := map[string]string{
		"Content-Disposition": `attachment; filename="` + res.FileName + `"`,
	}
	if res.ETag != "" {
		extraHeaders["ETag"] = res.ETag
	}

	c.DataFromReader(http.StatusOK, res.Size, contentType, res.Body, extraHeaders)
}
