package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid"
	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	"github.com/omnivault/omnivault/pkg/internal/types"
	nlog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/metrics"
	"github.com/omnivault/omnivault/pkg/queue"
)

// CreateFileRequest 上传一份文件所需的全部输入.
// Size 是申报的字节数，用于准入与账号分配；落库以实际写入量为准.
type CreateFileRequest struct {
	FileName    string
	Size        int64
	ContentType string
	FolderID    *uint
	SessionID   string
	OnConflict  types.ConflictPolicy
	Body        io.Reader
}

// newObjectKey 生成账号内对象键，ULID 前缀保持按时间有序.
func newObjectKey(user string, fileName string) (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}

	return fmt.Sprintf("%s/%s_%s", user, id.String(), fileName), nil
}

// progressReader 包装上传流，把读到的字节数镜像给准入控制器.
type progressReader struct {
	r         io.Reader
	adm       *Admission
	userID    uint
	sessionID string
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.adm.Progress(pr.userID, pr.sessionID, int64(n))
	}

	return n, err
}

// CreateFile 上传主流程：准入、选账号、解重名、流式写远端、落元数据、记账.
// 远端写失败不会留下半条元数据；准入槽位在任何退出路径上都恰好释放一次.
func (fs *FileService) CreateFile(ctx context.Context, userName string, req *CreateFileRequest) (*types.UploadFileResponse, error) {
	if req.FileName == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrValidation)
	}

	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: content length must be positive", ErrValidation)
	}

	if !req.OnConflict.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrValidation, req.OnConflict)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	if len(user.Accounts) == 0 {
		return nil, fmt.Errorf("%w: no backend account attached", ErrCapacityExceeded)
	}

	if _, err := fs.folderByID(ctx, user, req.FolderID); err != nil {
		return nil, err
	}

	adm := fs.admission()

	sessionID, release, err := adm.Admit(user.ID, req.SessionID, req.FileName, req.Size)
	if err != nil {
		return nil, err
	}
	defer release()

	info, err := fs.storeFile(ctx, user, req, adm, sessionID)
	if err != nil {
		adm.Finish(user.ID, sessionID, types.UploadStatusFailed, err.Error())

		return nil, err
	}

	adm.Finish(user.ID, sessionID, types.UploadStatusCompleted, "")

	return &types.UploadFileResponse{File: *info, SessionID: sessionID}, nil
}

// storeFile 准入之后的落盘流水线，失败原样上抛、由调用方打终态事件.
func (fs *FileService) storeFile(ctx context.Context, user *model.User, req *CreateFileRequest, adm *Admission, sessionID string) (*types.FileInfo, error) {
	sto, account, err := fs.pool.Select(ctx, user.Accounts, req.Size)
	if err != nil {
		return nil, mapBackendErr(err)
	}

	name, ext := splitFileName(req.FileName)

	resolved, err := fs.resolveFileName(ctx, user, req.FolderID, name, ext, req.OnConflict)
	if err != nil {
		return nil, err
	}

	key, err := newObjectKey(user.Name, req.FileName)
	if err != nil {
		return nil, err
	}

	body := &progressReader{r: req.Body, adm: adm, userID: user.ID, sessionID: sessionID}

	// 长度按未知流式写入，multipart 解出来的部分拿不到精确长度
	written, err := sto.Put(ctx, key, body, -1, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	file := model.File{
		OwnerID:    user.ID,
		ParentID:   req.FolderID,
		Name:       resolved,
		Extension:  ext,
		Size:       written,
		AccountID:  account.ID,
		ObjectKey:  key,
		UploadedAt: time.Now(),
	}

	if err := fs.dbClient.WithContext(ctx).Create(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 解析和插入之间有并发抢名，唯一索引最终仲裁，重解析一次
			resolved, rerr := fs.resolveFileName(ctx, user, req.FolderID, name, ext, req.OnConflict)
			if rerr != nil {
				fs.orphanCleanup(ctx, sto, key)

				return nil, rerr
			}

			file.ID = 0
			file.Name = resolved

			if err := fs.dbClient.WithContext(ctx).Create(&file).Error; err != nil {
				fs.orphanCleanup(ctx, sto, key)

				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return nil, ErrConflict
				}

				return nil, err
			}
		} else {
			fs.orphanCleanup(ctx, sto, key)

			return nil, err
		}
	}

	fs.pool.InvalidateQuota(ctx, account.ID)
	metrics.UploadBytes.WithLabelValues(account.Label).Add(float64(written))
	fs.bumpStats(ctx, user.ID, 1, 0, written)

	if err := queue.PublishFileStored(ctx, fs.mqClient, queue.FileStoredPayload{
		FileID:   file.ID,
		Owner:    user.Name,
		FileName: file.FullName(),
		FolderID: file.ParentID,
		Object: queue.ObjectRef{
			AccountID: account.ID,
			Account:   account.Label,
			Bucket:    account.Bucket,
			ObjectKey: key,
			Size:      written,
		},
	}); err != nil {
		nlog.Logger().Warn().Err(err).Uint("file", file.ID).Msg("failed to publish file stored event")
	}

	info := fileInfo(user, &file)

	return &info, nil
}

// orphanCleanup 元数据落库失败后回收已写入的远端对象，尽力而为.
func (fs *FileService) orphanCleanup(ctx context.Context, sto backend.Storage, key string) {
	if err := sto.Remove(ctx, key); err != nil {
		nlog.Logger().Warn().Err(err).
			Str("account", sto.Label()).
			Str("key", key).
			Msg("failed to clean up orphan object after metadata insert failure")
	}
}
