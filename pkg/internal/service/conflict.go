package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

// maxRenameProbes 重命名探测上限，理论上同级条目数 +1 次内必然命中.
const maxRenameProbes = 10000

// counterSuffixRe 匹配已带编号的名字，如 "report (3)".
var counterSuffixRe = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// splitFileName 把完整文件名拆成主名和扩展名（不含点）.
// 没有点、或点只出现在开头/结尾的名字视为无扩展名.
func splitFileName(full string) (name, ext string) {
	idx := strings.LastIndex(full, ".")
	if idx <= 0 || idx == len(full)-1 {
		return full, ""
	}

	return full[:idx], full[idx+1:]
}

// joinFileName 与 splitFileName 互逆.
func joinFileName(name, ext string) string {
	if ext == "" {
		return name
	}

	return name + "." + ext
}

// splitCounter 剥离末尾的 " (k)" 编号，返回词干和下一个候选编号.
func splitCounter(name string) (stem string, next int) {
	m := counterSuffixRe.FindStringSubmatch(name)
	if m == nil {
		return name, 1
	}

	k, err := strconv.Atoi(m[2])
	if err != nil {
		// 编号溢出 int 时当作普通名字
		return name, 1
	}

	return m[1], k + 1
}

// parentScope 统一 NULL 父目录的查询条件.
func parentScope(tx *gorm.DB, parentID *uint) *gorm.DB {
	if parentID == nil {
		return tx.Where("parent_id IS NULL")
	}

	return tx.Where("parent_id = ?", *parentID)
}

func (fs *FileService) siblingFile(ctx context.Context, ownerID uint, parentID *uint, name, ext string) (*model.File, error) {
	var f model.File

	tx := fs.dbClient.WithContext(ctx).Where("owner_id = ? AND name = ? AND extension = ?", ownerID, name, ext)
	if err := parentScope(tx, parentID).First(&f).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return &f, nil
}

func (fs *FileService) siblingFolder(ctx context.Context, ownerID uint, parentID *uint, name string) (*model.Folder, error) {
	var f model.Folder

	tx := fs.dbClient.WithContext(ctx).Where("owner_id = ? AND name = ?", ownerID, name)
	if err := parentScope(tx, parentID).First(&f).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return &f, nil
}

// resolveFileName 依据策略解决文件重名，返回可用主名.
// Rename 策略追加 " (k)" 编号且替换已有编号而非叠加；Overwrite 策略删除占位文件（含远端对象）.
func (fs *FileService) resolveFileName(ctx context.Context, user *model.User, parentID *uint, name, ext string, policy types.ConflictPolicy) (string, error) {
	existing, err := fs.siblingFile(ctx, user.ID, parentID, name, ext)
	if err != nil {
		return "", err
	}

	if existing == nil {
		return name, nil
	}

	if policy == types.ConflictOverwrite {
		if err := fs.removeFileEverywhere(ctx, user, existing); err != nil {
			return "", err
		}

		return name, nil
	}

	stem, next := splitCounter(name)

	for k := next; k < next+maxRenameProbes; k++ {
		candidate := fmt.Sprintf("%s (%d)", stem, k)

		hit, err := fs.siblingFile(ctx, user.ID, parentID, candidate, ext)
		if err != nil {
			return "", err
		}

		if hit == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no free name after %d probes", ErrConflict, maxRenameProbes)
}

// resolveFolderName 同 resolveFileName，但作用于文件夹；Overwrite 递归删除整棵占位子树.
func (fs *FileService) resolveFolderName(ctx context.Context, user *model.User, parentID *uint, name string, policy types.ConflictPolicy) (string, error) {
	existing, err := fs.siblingFolder(ctx, user.ID, parentID, name)
	if err != nil {
		return "", err
	}

	if existing == nil {
		return name, nil
	}

	if policy == types.ConflictOverwrite {
		if _, err := fs.deleteFolderTree(ctx, user, existing); err != nil {
			return "", err
		}

		return name, nil
	}

	stem, next := splitCounter(name)

	for k := next; k < next+maxRenameProbes; k++ {
		candidate := fmt.Sprintf("%s (%d)", stem, k)

		hit, err := fs.siblingFolder(ctx, user.ID, parentID, candidate)
		if err != nil {
			return "", err
		}

		if hit == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: no free name after %d probes", ErrConflict, maxRenameProbes)
}
