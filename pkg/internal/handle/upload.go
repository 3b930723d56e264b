package handle

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/log"
)

// UploadFile 流式接收 multipart 上传.
// 一次请求只收一个文件：第一个文件部分进入存储流水线，其余文件部分被拒绝，
// 但第一个文件的结果照常返回，被拒部分列在响应的 rejected 里.
func UploadFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		log.Logger().Warn().Err(err).Msg("not a multipart request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart/form-data required"})

		return
	}

	var (
		resp       *types.UploadFileResponse
		uploadErr  error
		rejected   []types.RejectedPart
		folderID   *uint
		onConflict types.ConflictPolicy
		sessionID  = c.Query("session")
		declared   = c.Request.ContentLength
	)

	svc := service.NewFileService(c.Request.Context())

	for {
		part, perr := reader.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}

		if perr != nil {
			log.Logger().Warn().Err(perr).Msg("broken multipart stream")
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})

			return
		}

		// 普通表单字段携带上传参数，必须排在文件部分之前才生效
		if part.FileName() == "" {
			switch part.FormName() {
			case "folder_id":
				if v, err := readFormValue(part); err == nil {
					if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
						u := uint(id)
						folderID = &u
					}
				}
			case "on_conflict":
				if v, err := readFormValue(part); err == nil {
					onConflict = types.ConflictPolicy(v)
				}
			case "session":
				if v, err := readFormValue(part); err == nil && v != "" {
					sessionID = v
				}
			case "size":
				if v, err := readFormValue(part); err == nil {
					if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
						declared = n
					}
				}
			default:
				_ = part.Close()
			}

			continue
		}

		if resp != nil || uploadErr != nil {
			// 每请求一个文件，后续文件部分整体丢弃
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()

			rejected = append(rejected, types.RejectedPart{
				FileName: part.FileName(),
				Error:    "one file per request",
			})

			continue
		}

		req := &service.CreateFileRequest{
			FileName:    part.FileName(),
			Size:        declared,
			ContentType: part.Header.Get("Content-Type"),
			FolderID:    folderID,
			SessionID:   sessionID,
			OnConflict:  onConflict,
			Body:        part,
		}

		resp, uploadErr = svc.CreateFile(c.Request.Context(), user, req)

		_ = part.Close()
	}

	if uploadErr != nil {
		writeError(c, uploadErr)

		return
	}

	if resp == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part in request"})

		return
	}

	resp.Rejected = rejected

	c.JSON(http.StatusCreated, resp)
}

// readFormValue 读一个小表单字段.
func readFormValue(part io.ReadCloser) (string, error) {
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, 1024))
	if err != nil {
		return "", err
	}

	return string(data), nil
}
