package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/log"
)

// CreateFolder 新建文件夹，重名按 on_conflict 策略处理.
func CreateFolder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.CreateFolder(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListRoot 列出根目录内容.
func ListRoot(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ListFolder(c.Request.Context(), user, nil)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListFolder 列出指定文件夹的直接子项.
func ListFolder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ListFolder(c.Request.Context(), user, &id)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateFolder 重命名/移动/修改公共标记.
func UpdateFolder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req types.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.UpdateFolder(c.Request.Context(), user, id, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteFolder 递归删除文件夹，返回实际删除计数.
func DeleteFolder(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.DeleteFolder(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
