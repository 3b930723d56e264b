package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

func folderInfo(f *model.Folder) types.FolderInfo {
	return types.FolderInfo{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		IsPublic:  f.IsPublic,
		CreatedAt: f.CreatedAt,
	}
}

// CreateFolder 在指定父目录下新建文件夹，重名按策略解决.
func (fs *FileService) CreateFolder(ctx context.Context, userName string, req *types.CreateFolderRequest) (*types.FolderInfo, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: empty folder name", ErrValidation)
	}

	if !req.OnConflict.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrValidation, req.OnConflict)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	if _, err := fs.folderByID(ctx, user, req.ParentID); err != nil {
		return nil, err
	}

	name, err := fs.resolveFolderName(ctx, user, req.ParentID, req.Name, req.OnConflict)
	if err != nil {
		return nil, err
	}

	folder := model.Folder{
		OwnerID:  user.ID,
		ParentID: req.ParentID,
		Name:     name,
	}

	if err := fs.dbClient.WithContext(ctx).Create(&folder).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 唯一索引是最终仲裁，撞上并发创建就重解析一次
			name, rerr := fs.resolveFolderName(ctx, user, req.ParentID, req.Name, req.OnConflict)
			if rerr != nil {
				return nil, rerr
			}

			folder = model.Folder{OwnerID: user.ID, ParentID: req.ParentID, Name: name}
			if err := fs.dbClient.WithContext(ctx).Create(&folder).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return nil, ErrConflict
				}

				return nil, err
			}
		} else {
			return nil, err
		}
	}

	fs.bumpStats(ctx, user.ID, 0, 1, 0)

	info := folderInfo(&folder)

	return &info, nil
}

// UpdateFolder 重命名/移动/改公共标记.
func (fs *FileService) UpdateFolder(ctx context.Context, userName string, id uint, req *types.UpdateFolderRequest) (*types.FolderInfo, error) {
	if !req.OnConflict.Valid() {
		return nil, fmt.Errorf("%w: unknown conflict policy %q", ErrValidation, req.OnConflict)
	}

	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	folder, err := fs.folderByID(ctx, user, &id)
	if err != nil {
		return nil, err
	}

	if err := fs.applyFolderUpdate(ctx, user, folder, req); err != nil {
		return nil, err
	}

	info := folderInfo(folder)

	return &info, nil
}

// applyFolderUpdate 在已加载的记录上执行更新，批量路径复用.
func (fs *FileService) applyFolderUpdate(ctx context.Context, user *model.User, folder *model.Folder, req *types.UpdateFolderRequest) error {
	newParent := folder.ParentID
	if req.ParentID != nil {
		if *req.ParentID == 0 {
			newParent = nil
		} else {
			if _, err := fs.folderByID(ctx, user, req.ParentID); err != nil {
				return err
			}

			newParent = req.ParentID
		}

		// 不允许把文件夹移进自己或自己的子孙，否则成环
		if newParent != nil {
			cyclic, err := fs.wouldCycle(ctx, user, folder.ID, *newParent)
			if err != nil {
				return err
			}

			if cyclic {
				return fmt.Errorf("%w: cannot move a folder into itself or its descendant", ErrValidation)
			}
		}
	}

	newName := folder.Name
	if req.Name != nil {
		if *req.Name == "" {
			return fmt.Errorf("%w: empty folder name", ErrValidation)
		}

		newName = *req.Name
	}

	if newName != folder.Name || !sameParent(newParent, folder.ParentID) {
		resolved, err := fs.resolveFolderName(ctx, user, newParent, newName, req.OnConflict)
		if err != nil {
			return err
		}

		newName = resolved
	}

	updates := map[string]any{
		"name":      newName,
		"parent_id": newParent,
	}
	if req.IsPublic != nil {
		updates["is_public"] = *req.IsPublic
	}

	if err := fs.dbClient.WithContext(ctx).Model(folder).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}

		return err
	}

	return nil
}

// wouldCycle 判断把 folderID 挂到 targetID 下是否产生环，沿父链向根回溯.
func (fs *FileService) wouldCycle(ctx context.Context, user *model.User, folderID, targetID uint) (bool, error) {
	cur := &targetID

	for cur != nil {
		if *cur == folderID {
			return true, nil
		}

		var f model.Folder
		if err := fs.dbClient.WithContext(ctx).Select("id", "parent_id", "owner_id").First(&f, *cur).Error; err != nil {
			if isNotFound(err) {
				return false, ErrNotFound
			}

			return false, err
		}

		if f.OwnerID != user.ID {
			return false, ErrForbidden
		}

		cur = f.ParentID
	}

	return false, nil
}

// ListFolder 列出指定目录（nil 为根）的直接子文件夹与子文件.
func (fs *FileService) ListFolder(ctx context.Context, userName string, folderID *uint) (*types.ListFilesResponse, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	if _, err := fs.folderByID(ctx, user, folderID); err != nil {
		return nil, err
	}

	var folders []model.Folder

	tx := fs.dbClient.WithContext(ctx).Where("owner_id = ?", user.ID).Order("name ASC")
	if err := parentScope(tx, folderID).Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []model.File

	tx = fs.dbClient.WithContext(ctx).Where("owner_id = ?", user.ID).Order("name ASC, extension ASC")
	if err := parentScope(tx, folderID).Find(&files).Error; err != nil {
		return nil, err
	}

	resp := &types.ListFilesResponse{
		Folders: make([]types.FolderInfo, 0, len(folders)),
		Files:   make([]types.FileInfo, 0, len(files)),
	}

	for i := range folders {
		resp.Folders = append(resp.Folders, folderInfo(&folders[i]))
	}

	for i := range files {
		resp.Files = append(resp.Files, fileInfo(user, &files[i]))
	}

	return resp, nil
}
