package handle

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	ctxPkg "github.com/omnivault/omnivault/pkg/context"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/service"
)

// UploadProgress 以 SSE 推送指定会话的上传进度，终态事件后流结束.
func UploadProgress(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	sessionID := c.Param("session")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id required"})

		return
	}

	uid, err := lookupUserID(c, user)
	if err != nil {
		writeError(c, err)

		return
	}

	events, ok := service.DefaultAdmission().Events(uid, sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload session"})

		return
	}

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-events:
			if !open {
				return false
			}

			c.SSEvent("progress", ev)

			return !ev.Status.Terminal()
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// lookupUserID 会话归属校验需要用户主键，用户不存在说明还没有任何上传.
func lookupUserID(c *gin.Context, name string) (uint, error) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil {
		return 0, service.ErrBackendUnavailable
	}

	var u model.User
	if err := dbc.WithContext(c.Request.Context()).Where("name = ?", name).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, service.ErrNotFound
		}

		return 0, err
	}

	return u.ID, nil
}
