package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
	nlog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/metrics"
	"github.com/omnivault/omnivault/pkg/queue"
)

// treeResult 一次递归删除的聚合结果.
type treeResult struct {
	DeletedFiles    int
	DeletedFolders  int
	FailedFiles     int
	RetainedFolders int
	FreedBytes      int64
	Results         []types.BatchResult
}

func (r *treeResult) merge(other *treeResult) {
	r.DeletedFiles += other.DeletedFiles
	r.DeletedFolders += other.DeletedFolders
	r.FailedFiles += other.FailedFiles
	r.RetainedFolders += other.RetainedFolders
	r.FreedBytes += other.FreedBytes
	r.Results = append(r.Results, other.Results...)
}

// record 追加一条单项结果并即时写结构化日志，失败项提升到 Warn.
func (r *treeResult) record(item types.BatchResult) {
	r.Results = append(r.Results, item)

	ev := nlog.Logger().Debug()
	if !item.Success {
		ev = nlog.Logger().Warn().Str("error", item.Error)
	}

	ev.Str("kind", item.Kind).Uint("id", item.ID).Bool("success", item.Success).Msg("folder delete item")
}

// DeleteFolder 递归删除文件夹及其全部内容，返回实际删除计数与逐项结果明细.
func (fs *FileService) DeleteFolder(ctx context.Context, userName string, folderID uint) (*types.DeleteFolderResponse, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	folder, err := fs.folderByID(ctx, user, &folderID)
	if err != nil {
		return nil, err
	}

	res, err := fs.deleteFolderTree(ctx, user, folder)
	if err != nil {
		return nil, err
	}

	// 计数只用实际成功数做减量，部分失败不会让统计变负
	fs.bumpStats(ctx, user.ID, -int64(res.DeletedFiles), -int64(res.DeletedFolders), -res.FreedBytes)

	if err := queue.PublishFolderDeleted(ctx, fs.mqClient, queue.FolderDeletedPayload{
		FolderID:       folderID,
		Owner:          user.Name,
		DeletedFiles:   res.DeletedFiles,
		DeletedFolders: res.DeletedFolders,
		FailedFiles:    res.FailedFiles,
	}); err != nil {
		nlog.Logger().Warn().Err(err).Uint("folder", folderID).Msg("failed to publish folder deleted event")
	}

	return &types.DeleteFolderResponse{
		DeletedFiles:    res.DeletedFiles,
		DeletedFolders:  res.DeletedFolders,
		FailedFiles:     res.FailedFiles,
		RetainedFolders: res.RetainedFolders,
		Results:         res.Results,
	}, nil
}

// deleteFolderTree 后序递归：先删子文件再递归子文件夹，孩子全部清空后才删自身记录.
// 任何一个远端删除失败都不会中断同级或上级，失败文件的元数据保留以便重试.
func (fs *FileService) deleteFolderTree(ctx context.Context, user *model.User, folder *model.Folder) (*treeResult, error) {
	res := &treeResult{}

	var files []model.File
	if err := fs.dbClient.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", user.ID, folder.ID).
		Find(&files).Error; err != nil {
		return nil, err
	}

	fs.deleteChildFiles(ctx, user, files, res)

	var children []model.Folder
	if err := fs.dbClient.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", user.ID, folder.ID).
		Find(&children).Error; err != nil {
		return nil, err
	}

	blocked := res.FailedFiles > 0

	for i := range children {
		child := children[i]

		sub, err := fs.deleteFolderTree(ctx, user, &child)
		if err != nil {
			return nil, err
		}

		if sub.FailedFiles > 0 {
			blocked = true
		}

		res.merge(sub)
	}

	// 还挂着删不掉的孩子时保留自身记录，保证失败文件仍可达
	if blocked {
		res.RetainedFolders++
		res.record(types.BatchResult{
			Kind: "folder", ID: folder.ID, Success: false,
			Error: "retained: subtree still holds files that could not be removed",
		})

		return res, nil
	}

	if err := fs.dbClient.WithContext(ctx).Delete(&model.Folder{}, folder.ID).Error; err != nil {
		return nil, err
	}

	res.DeletedFolders++
	res.record(types.BatchResult{Kind: "folder", ID: folder.ID, Success: true})

	return res, nil
}

// deleteChildFiles 把直接子文件按后端账号分组，组内并发删远端对象，组间串行.
// 远端成功的文件一批删元数据，失败的保留并记入结果.
func (fs *FileService) deleteChildFiles(ctx context.Context, user *model.User, files []model.File, res *treeResult) {
	if len(files) == 0 {
		return
	}

	groups := make(map[uint][]model.File)
	for _, f := range files {
		groups[f.AccountID] = append(groups[f.AccountID], f)
	}

	limit := configs.GetConfig().Backends.DeleteConcurrency
	if limit <= 0 {
		limit = configs.DefaultDeleteConcurrency
	}

	for accountID, group := range groups {
		sto, err := fs.storageFor(ctx, user, accountID)
		if err != nil {
			// 整个账号不可达，组内所有文件标失败
			for _, f := range group {
				res.FailedFiles++
				res.record(types.BatchResult{
					Kind: "file", ID: f.ID, Success: false, Error: err.Error(),
				})
			}

			continue
		}

		var (
			mu      sync.Mutex
			removed []model.File
		)

		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(limit)

		for i := range group {
			f := group[i]

			eg.Go(func() error {
				if err := sto.Remove(gctx, f.ObjectKey); err != nil {
					metrics.RemoteDeleteFailures.WithLabelValues(sto.Label()).Inc()

					mu.Lock()
					res.FailedFiles++
					res.record(types.BatchResult{
						Kind: "file", ID: f.ID, Success: false, Error: err.Error(),
					})
					mu.Unlock()

					// 单个失败不取消兄弟
					return nil
				}

				mu.Lock()
				removed = append(removed, f)
				mu.Unlock()

				return nil
			})
		}

		_ = eg.Wait()

		if len(removed) == 0 {
			continue
		}

		ids := make([]uint, 0, len(removed))
		for _, f := range removed {
			ids = append(ids, f.ID)
			fs.dropEdgeCopy(&f)
		}

		if err := fs.dbClient.WithContext(ctx).Delete(&model.File{}, ids).Error; err != nil {
			// 远端已删、本地删失败：记失败项，对账任务兜底
			for _, f := range removed {
				res.FailedFiles++
				res.record(types.BatchResult{
					Kind: "file", ID: f.ID, Success: false, Error: err.Error(),
				})
			}

			continue
		}

		for _, f := range removed {
			res.DeletedFiles++
			res.FreedBytes += f.Size
			res.record(types.BatchResult{Kind: "file", ID: f.ID, Success: true})
		}

		fs.pool.InvalidateQuota(ctx, accountID)
	}
}

// DeleteMany 混合批量删除，结果数组与输入一一对应、顺序不变.
func (fs *FileService) DeleteMany(ctx context.Context, userName string, req *types.BatchDeleteRequest) (*types.BatchResponse, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	resp := &types.BatchResponse{
		Results: make([]types.BatchResult, 0, len(req.Items)),
		Total:   len(req.Items),
	}

	var (
		freedFiles, freedFolders int64
		freedBytes               int64
	)

	for _, item := range req.Items {
		result := fs.deleteOne(ctx, user, item, &freedFiles, &freedFolders, &freedBytes)
		resp.Results = append(resp.Results, result)
	}

	for _, r := range resp.Results {
		if r.Success {
			resp.Success++
		} else {
			resp.Failed++
		}
	}

	fs.bumpStats(ctx, user.ID, -freedFiles, -freedFolders, -freedBytes)

	return resp, nil
}

// deleteOne 处理批量删除中的一项，失败转化为结果项而非错误.
func (fs *FileService) deleteOne(ctx context.Context, user *model.User, item types.BatchItem, files, folders, bytes *int64) types.BatchResult {
	if err := item.Validate(); err != nil {
		return types.BatchResult{Kind: item.Kind(), Success: false, Error: err.Error()}
	}

	if item.FileID != nil {
		f, err := fs.fileByID(ctx, user, *item.FileID)
		if err != nil {
			return types.BatchResult{Kind: "file", ID: *item.FileID, Success: false, Error: err.Error()}
		}

		if err := fs.removeFileEverywhere(ctx, user, f); err != nil {
			return types.BatchResult{Kind: "file", ID: f.ID, Success: false, Error: err.Error()}
		}

		// removeFileEverywhere 已自减计数，这里不再累计
		return types.BatchResult{Kind: "file", ID: f.ID, Success: true}
	}

	folder, err := fs.folderByID(ctx, user, item.FolderID)
	if err != nil {
		return types.BatchResult{Kind: "folder", ID: *item.FolderID, Success: false, Error: err.Error()}
	}

	res, err := fs.deleteFolderTree(ctx, user, folder)
	if err != nil {
		return types.BatchResult{Kind: "folder", ID: folder.ID, Success: false, Error: err.Error()}
	}

	*files += int64(res.DeletedFiles)
	*folders += int64(res.DeletedFolders)
	*bytes += res.FreedBytes

	if res.FailedFiles > 0 {
		return types.BatchResult{
			Kind: "folder", ID: folder.ID, Success: false,
			Error: fmt.Sprintf("%d file(s) could not be removed from their backend", res.FailedFiles),
		}
	}

	return types.BatchResult{Kind: "folder", ID: folder.ID, Success: true}
}

// UpdateMany 混合批量更新，单项失败不影响其余项.
func (fs *FileService) UpdateMany(ctx context.Context, userName string, req *types.BatchUpdateRequest) (*types.BatchResponse, error) {
	if !req.OnConflict.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrValidation, req.OnConflict)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	resp := &types.BatchResponse{
		Results: make([]types.BatchResult, 0, len(req.Items)),
		Total:   len(req.Items),
	}

	for _, item := range req.Items {
		resp.Results = append(resp.Results, fs.updateOne(ctx, user, item, req.OnConflict))
	}

	for _, r := range resp.Results {
		if r.Success {
			resp.Success++
		} else {
			resp.Failed++
		}
	}

	return resp, nil
}

func (fs *FileService) updateOne(ctx context.Context, user *model.User, item types.BatchUpdateItem, policy types.ConflictPolicy) types.BatchResult {
	if err := item.Validate(); err != nil {
		return types.BatchResult{Kind: item.Kind(), Success: false, Error: err.Error()}
	}

	if item.FileID != nil {
		f, err := fs.fileByID(ctx, user, *item.FileID)
		if err != nil {
			return types.BatchResult{Kind: "file", ID: *item.FileID, Success: false, Error: err.Error()}
		}

		req := &types.UpdateFileRequest{
			Name:        item.Name,
			FolderID:    item.MoveTo,
			Description: item.Description,
			IsPublic:    item.IsPublic,
			OnConflict:  policy,
		}
		if err := fs.applyFileUpdate(ctx, user, f, req); err != nil {
			return types.BatchResult{Kind: "file", ID: f.ID, Success: false, Error: err.Error()}
		}

		return types.BatchResult{Kind: "file", ID: f.ID, Success: true}
	}

	folder, err := fs.folderByID(ctx, user, item.FolderID)
	if err != nil {
		return types.BatchResult{Kind: "folder", ID: *item.FolderID, Success: false, Error: err.Error()}
	}

	req := &types.UpdateFolderRequest{
		Name:       item.Name,
		ParentID:   item.MoveTo,
		IsPublic:   item.IsPublic,
		OnConflict: policy,
	}
	if err := fs.applyFolderUpdate(ctx, user, folder, req); err != nil {
		return types.BatchResult{Kind: "folder", ID: folder.ID, Success: false, Error: err.Error()}
	}

	return types.BatchResult{Kind: "folder", ID: folder.ID, Success: true}
}
