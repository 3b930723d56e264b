package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/log"
)

// BatchDelete 混合批量删除，响应数组与请求项一一对应.
func BatchDelete(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.BatchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no items provided"})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.DeleteMany(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// BatchUpdate 混合批量更新.
func BatchUpdate(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no items provided"})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.UpdateMany(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
