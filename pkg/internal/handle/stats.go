package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
)

// GetStats 返回用户用量汇总，首访时现场对账.
func GetStats(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.GetStats(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshStats 强制对所有后端账号做一轮实时配额对账.
func RefreshStats(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Reconcile(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
