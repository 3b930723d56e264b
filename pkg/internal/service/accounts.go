package service

import (
	"context"
	"fmt"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
	nlog "github.com/omnivault/omnivault/pkg/log"
)

func accountInfo(a *model.BackendAccount) types.AccountInfo {
	return types.AccountInfo{
		ID:       a.ID,
		Label:    a.Label,
		Endpoint: a.Endpoint,
		Bucket:   a.Bucket,
		Capacity: a.Capacity,
		Position: a.Position,
	}
}

// ListAccounts 列出用户挂载的后端账号，按分配顺序排列，不带凭证.
func (fs *FileService) ListAccounts(ctx context.Context, userName string) ([]types.AccountInfo, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	infos := make([]types.AccountInfo, 0, len(user.Accounts))
	for i := range user.Accounts {
		infos = append(infos, accountInfo(&user.Accounts[i]))
	}

	return infos, nil
}

// AddAccount 挂载一个新账号，排在现有账号之后，随后触发一轮对账.
func (fs *FileService) AddAccount(ctx context.Context, userName string, req *types.AddAccountRequest) (*types.AccountInfo, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	position := 0
	for _, acc := range user.Accounts {
		if acc.Position >= position {
			position = acc.Position + 1
		}
	}

	account := model.BackendAccount{
		UserID:          user.ID,
		Label:           req.Label,
		Endpoint:        req.Endpoint,
		AccessKeyID:     req.AccessKeyID,
		SecretAccessKey: req.SecretAccessKey,
		Bucket:          req.Bucket,
		UseSSL:          req.UseSSL,
		Capacity:        req.Capacity,
		Position:        position,
	}

	if err := fs.dbClient.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}

	// 新账号立刻纳入容量汇总
	if _, err := fs.Reconcile(ctx, userName); err != nil {
		nlog.Logger().Warn().Err(err).Str("user", userName).Msg("reconcile after account add failed")
	}

	info := accountInfo(&account)

	return &info, nil
}

// CheckBackends 逐个探活用户挂载的后端账号，Error 非空表示不可达.
func (fs *FileService) CheckBackends(ctx context.Context, userName string) ([]types.BackendStatsItem, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	items := make([]types.BackendStatsItem, 0, len(user.Accounts))

	for i := range user.Accounts {
		acc := user.Accounts[i]
		item := types.BackendStatsItem{AccountID: acc.ID, Label: acc.Label}

		sto, err := fs.pool.Client(ctx, acc)
		if err != nil {
			item.Error = err.Error()
		} else if err := sto.Health(ctx); err != nil {
			item.Error = err.Error()
		}

		items = append(items, item)
	}

	return items, nil
}

// RemoveAccount 卸载一个账号.
// 仍承载文件的账号不允许卸载，避免元数据指向无法访问的字节.
func (fs *FileService) RemoveAccount(ctx context.Context, userName string, id uint) error {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return err
	}

	acc := accountByID(user, id)
	if acc == nil {
		return ErrNotFound
	}

	var inUse int64
	if err := fs.dbClient.WithContext(ctx).Model(&model.File{}).
		Where("account_id = ?", id).Count(&inUse).Error; err != nil {
		return err
	}

	if inUse > 0 {
		return fmt.Errorf("%w: %d file(s) still stored on this account", ErrValidation, inUse)
	}

	if err := fs.dbClient.WithContext(ctx).Delete(&model.BackendAccount{}, id).Error; err != nil {
		return err
	}

	fs.pool.Forget(ctx, id)

	if _, err := fs.Reconcile(ctx, userName); err != nil {
		nlog.Logger().Warn().Err(err).Str("user", userName).Msg("reconcile after account removal failed")
	}

	return nil
}
