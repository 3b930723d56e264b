package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/log"
)

// ListAccounts 列出当前用户挂载的后端账号，响应不含凭证.
func ListAccounts(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	infos, err := svc.ListAccounts(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": infos})
}

// AddAccount 挂载一个后端账号并触发对账.
func AddAccount(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req types.AddAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.AddAccount(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusCreated, info)
}

// RemoveAccount 卸载一个后端账号；仍承载文件的账号会被拒绝.
func RemoveAccount(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.RemoveAccount(c.Request.Context(), user, id); err != nil {
		writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}
