// Package handle 提供 HTTP 请求处理器的实现.
package handle

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/rule"
)

func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"message": "Not Implemented"})
}

// checkUser 提取请求方身份：Header 优先 -> query 参数 -> 非 Release 模式默认测试用户.
func checkUser(c *gin.Context) (string, error) {
	header := configs.GetConfig().Auth.UserHeader
	if header == "" {
		header = "X-User"
	}

	user := c.GetHeader(header)
	if user == "" {
		user = c.Query("user")
	}

	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = "test-user"
	}

	user = strings.TrimSpace(user)

	if err := rule.ValidateVar(user, "required,min=1,max=255"); err != nil {
		return "", err
	}

	return user, nil
}

// requireUser 没有身份时直接写 401 并返回 false.
func requireUser(c *gin.Context) (string, bool) {
	user, err := checkUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})

		return "", false
	}

	return user, true
}

// pathID 解析路径里的数字 id.
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})

		return 0, false
	}

	return uint(id), true
}

// writeError 把业务错误映射到 HTTP 状态码.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrCapacityExceeded):
		status = http.StatusInsufficientStorage
	case errors.Is(err, service.ErrBackendUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUploadLimit):
		status = http.StatusTooManyRequests
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
