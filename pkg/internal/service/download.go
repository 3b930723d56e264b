package service

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/metrics"
)

// DownloadResult 一次下载的流与随行元信息，调用方负责 Close.
type DownloadResult struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
	ETag        string
}

// etagFor 从对象键和大小算弱校验标签，覆盖写会换对象键所以标签随之变化.
func etagFor(f *model.File) string {
	return fmt.Sprintf("\"%x-%x\"", xxhash.Sum64String(f.ObjectKey), f.Size)
}

// DownloadFile 拉取属主自己的文件，直接透传后端流.
func (fs *FileService) DownloadFile(ctx context.Context, userName string, id uint) (*DownloadResult, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	f, err := fs.fileByID(ctx, user, id)
	if err != nil {
		return nil, err
	}

	sto, err := fs.storageFor(ctx, user, f.AccountID)
	if err != nil {
		return nil, err
	}

	rc, info, err := sto.Get(ctx, f.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return &DownloadResult{
		Body:        rc,
		Size:        info.Size,
		ContentType: info.ContentType,
		FileName:    f.FullName(),
		ETag:        etagFor(f),
	}, nil
}

// StreamPublicFile 无鉴权拉取公开文件，优先走本地边缘缓存.
func (fs *FileService) StreamPublicFile(ctx context.Context, id uint) (*DownloadResult, error) {
	var f model.File
	if err := fs.dbClient.WithContext(ctx).First(&f, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if !f.IsPublic {
		return nil, ErrForbidden
	}

	if res, ok := fs.openEdgeCopy(&f); ok {
		metrics.EdgeCacheHits.WithLabelValues("hit").Inc()

		return res, nil
	}

	metrics.EdgeCacheHits.WithLabelValues("miss").Inc()

	owner, err := fs.userByID(ctx, f.OwnerID)
	if err != nil {
		return nil, err
	}

	sto, err := fs.storageFor(ctx, owner, f.AccountID)
	if err != nil {
		return nil, err
	}

	rc, info, err := sto.Get(ctx, f.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	body := fs.maybeMaterialize(ctx, &f, rc)

	return &DownloadResult{
		Body:        body,
		Size:        info.Size,
		ContentType: info.ContentType,
		FileName:    f.FullName(),
		ETag:        etagFor(&f),
	}, nil
}

// openEdgeCopy 尝试打开本地缓存副本，指针悬空时顺手清掉.
func (fs *FileService) openEdgeCopy(f *model.File) (*DownloadResult, bool) {
	if f.CachedPath == "" {
		return nil, false
	}

	fd, err := os.Open(f.CachedPath)
	if err != nil {
		return nil, false
	}

	st, err := fd.Stat()
	if err != nil {
		_ = fd.Close()

		return nil, false
	}

	return &DownloadResult{
		Body:     fd,
		Size:     st.Size(),
		FileName: f.FullName(),
		ETag:     etagFor(f),
	}, true
}

// userByID 按主键取用户并预加载账户，排序与 ensureUser 一致.
func (fs *FileService) userByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User

	err := fs.dbClient.WithContext(ctx).
		Preload("Accounts", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		First(&u, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &u, nil
}
