package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	"github.com/omnivault/omnivault/pkg/internal/types"
	nlog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/metrics"
	"github.com/omnivault/omnivault/pkg/queue"
)

// fileInfo 组装对外视图，账号 Label 从已加载的账户列表里取.
func fileInfo(user *model.User, f *model.File) types.FileInfo {
	label := ""
	if acc := accountByID(user, f.AccountID); acc != nil {
		label = acc.Label
	}

	return types.FileInfo{
		ID:          f.ID,
		Name:        f.Name,
		Extension:   f.Extension,
		FullName:    f.FullName(),
		Size:        f.Size,
		FolderID:    f.ParentID,
		Account:     label,
		IsPublic:    f.IsPublic,
		Description: f.Description,
		UploadedAt:  f.UploadedAt,
	}
}

// GetFile 返回单个文件的元数据.
func (fs *FileService) GetFile(ctx context.Context, userName string, id uint) (*types.FileInfo, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	f, err := fs.fileByID(ctx, user, id)
	if err != nil {
		return nil, err
	}

	info := fileInfo(user, f)

	return &info, nil
}

// UpdateFile 重命名/移动/改描述/改公共标记，远端先行，元数据随后.
func (fs *FileService) UpdateFile(ctx context.Context, userName string, id uint, req *types.UpdateFileRequest) (*types.FileInfo, error) {
	if !req.OnConflict.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrValidation, req.OnConflict)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	f, err := fs.fileByID(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if err := fs.applyFileUpdate(ctx, user, f, req); err != nil {
		return nil, err
	}

	info := fileInfo(user, f)

	return &info, nil
}

// applyFileUpdate 在已加载的记录上执行更新，批量路径复用.
func (fs *FileService) applyFileUpdate(ctx context.Context, user *model.User, f *model.File, req *types.UpdateFileRequest) error {
	newParent := f.ParentID
	if req.FolderID != nil {
		if *req.FolderID == 0 {
			newParent = nil
		} else {
			if _, err := fs.folderByID(ctx, user, req.FolderID); err != nil {
				return err
			}

			newParent = req.FolderID
		}
	}

	newName, newExt := f.Name, f.Extension
	if req.Name != nil {
		newName, newExt = splitFileName(*req.Name)
		if newName == "" {
			return fmt.Errorf("%w: empty file name", ErrValidation)
		}
	}

	renamed := newName != f.Name || newExt != f.Extension || !sameParent(newParent, f.ParentID)
	if renamed {
		resolved, err := fs.resolveFileName(ctx, user, newParent, newName, newExt, req.OnConflict)
		if err != nil {
			return err
		}

		newName = resolved
	}

	updates := map[string]any{
		"name":      newName,
		"extension": newExt,
		"parent_id": newParent,
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	// 公共标记变化先打到远端，失败则元数据保持原样
	if req.IsPublic != nil && *req.IsPublic != f.IsPublic {
		sto, err := fs.storageFor(ctx, user, f.AccountID)
		if err != nil {
			return err
		}

		if err := sto.SetPublic(ctx, f.ObjectKey, *req.IsPublic); err != nil {
			return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}

		// 转私有时边缘缓存随之失效
		if !*req.IsPublic {
			fs.dropEdgeCopy(f)

			updates["cached_path"] = ""
			updates["cached_at"] = nil
		}
	}

	if err := fs.dbClient.WithContext(ctx).Model(f).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 解析与提交之间有并发创建，重解析一次再提交
			resolved, rerr := fs.resolveFileName(ctx, user, newParent, newName, newExt, req.OnConflict)
			if rerr != nil {
				return rerr
			}

			updates["name"] = resolved
			if err := fs.dbClient.WithContext(ctx).Model(f).Updates(updates).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrConflict
				}

				return err
			}

			return nil
		}

		return err
	}

	return nil
}

// DeleteFile 删除单个文件，远端成功（或确认不存在）后才删元数据.
func (fs *FileService) DeleteFile(ctx context.Context, userName string, id uint) error {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return err
	}

	f, err := fs.fileByID(ctx, user, id)
	if err != nil {
		return err
	}

	return fs.removeFileEverywhere(ctx, user, f)
}

// removeFileEverywhere 先删远端对象，再删元数据行，最后修正计数与缓存.
func (fs *FileService) removeFileEverywhere(ctx context.Context, user *model.User, f *model.File) error {
	sto, err := fs.storageFor(ctx, user, f.AccountID)
	if err != nil {
		return err
	}

	if err := sto.Remove(ctx, f.ObjectKey); err != nil {
		metrics.RemoteDeleteFailures.WithLabelValues(sto.Label()).Inc()

		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if err := fs.dbClient.WithContext(ctx).Delete(&model.File{}, f.ID).Error; err != nil {
		return err
	}

	fs.dropEdgeCopy(f)
	fs.pool.InvalidateQuota(ctx, f.AccountID)
	fs.bumpStats(ctx, user.ID, -1, 0, -f.Size)

	if err := queue.PublishFileDeleted(ctx, fs.mqClient, queue.FileDeletedPayload{
		FileID: f.ID,
		Owner:  user.Name,
		Object: queue.ObjectRef{AccountID: f.AccountID, Account: sto.Label(), ObjectKey: f.ObjectKey, Size: f.Size},
	}); err != nil {
		nlog.Logger().Warn().Err(err).Uint("file", f.ID).Msg("failed to publish file deleted event")
	}

	return nil
}

// storageFor 把账号 id 换成已就绪的后端连接.
func (fs *FileService) storageFor(ctx context.Context, user *model.User, accountID uint) (backend.Storage, error) {
	acc := accountByID(user, accountID)
	if acc == nil {
		return nil, fmt.Errorf("%w: backend account %d not attached", ErrNotFound, accountID)
	}

	sto, err := fs.pool.Client(ctx, *acc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	return sto, nil
}

// dropEdgeCopy 清掉本地边缘缓存文件，失败只记日志.
func (fs *FileService) dropEdgeCopy(f *model.File) {
	if f.CachedPath == "" {
		return
	}

	if err := os.Remove(f.CachedPath); err != nil && !os.IsNotExist(err) {
		nlog.Logger().Warn().Err(err).Str("path", f.CachedPath).Msg("failed to drop edge cache copy")
	}
}

// bumpStats 增量修正用户计数，行不存在时落一条初始行；失败只记日志，定时对账会纠偏.
func (fs *FileService) bumpStats(ctx context.Context, userID uint, files, folders int64, bytes int64) {
	tx := fs.dbClient.WithContext(ctx).Model(&model.UsageStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"file_count":    gorm.Expr("file_count + ?", files),
			"folder_count":  gorm.Expr("folder_count + ?", folders),
			"used_capacity": gorm.Expr("used_capacity + ?", bytes),
		})
	if tx.Error != nil {
		nlog.Logger().Warn().Err(tx.Error).Uint("user", userID).Msg("failed to bump usage stats")

		return
	}

	if tx.RowsAffected == 0 {
		row := model.UsageStats{
			UserID:       userID,
			FileCount:    max(files, 0),
			FolderCount:  max(folders, 0),
			UsedCapacity: max(bytes, 0),
		}
		if err := fs.dbClient.WithContext(ctx).Create(&row).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			nlog.Logger().Warn().Err(err).Uint("user", userID).Msg("failed to seed usage stats")
		}
	}
}

func sameParent(a, b *uint) bool {
	if (a == nil) != (b == nil) {
		return false
	}

	return a == nil || *a == *b
}
