package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm/clause"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
	nlog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/queue"
)

// GetStats 返回用户用量汇总，没有快照时现场对账一次.
func (fs *FileService) GetStats(ctx context.Context, userName string) (*types.StatsResponse, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	var row model.UsageStats

	err = fs.dbClient.WithContext(ctx).Where("user_id = ?", user.ID).First(&row).Error
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}

		return fs.Reconcile(ctx, userName)
	}

	usages, err := row.Backends()
	if err != nil {
		nlog.Logger().Warn().Err(err).Uint("user", user.ID).Msg("corrupt backend usage snapshot, re-reconciling")

		return fs.Reconcile(ctx, userName)
	}

	return statsResponse(&row, usages), nil
}

// Reconcile 并发查询每个账号的实时配额，汇总落库.
// 单个账号不可达不中断整轮，差错记录在该账号的明细行里.
func (fs *FileService) Reconcile(ctx context.Context, userName string) (*types.StatsResponse, error) {
	user, err := fs.ensureUser(ctx, userName)
	if err != nil {
		return nil, err
	}

	usages := make([]model.BackendUsage, len(user.Accounts))

	var wg sync.WaitGroup

	for i := range user.Accounts {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			acc := user.Accounts[i]
			usages[i] = model.BackendUsage{AccountID: acc.ID, Label: acc.Label}

			q, err := fs.pool.Quota(ctx, acc)
			if err != nil {
				usages[i].Error = err.Error()

				return
			}

			usages[i].Total = q.Total
			usages[i].Used = q.Used
			usages[i].Available = q.Free()
		}(i)
	}

	wg.Wait()

	var total, used int64

	unreachable := 0

	for _, u := range usages {
		if u.Error != "" {
			unreachable++

			continue
		}

		total += u.Total
		used += u.Used
	}

	var fileCount, folderCount int64

	if err := fs.dbClient.WithContext(ctx).Model(&model.File{}).
		Where("owner_id = ?", user.ID).Count(&fileCount).Error; err != nil {
		return nil, err
	}

	if err := fs.dbClient.WithContext(ctx).Model(&model.Folder{}).
		Where("owner_id = ?", user.ID).Count(&folderCount).Error; err != nil {
		return nil, err
	}

	row := model.UsageStats{
		UserID:        user.ID,
		FileCount:     fileCount,
		FolderCount:   folderCount,
		TotalCapacity: total,
		UsedCapacity:  used,
		RefreshedAt:   time.Now(),
	}
	if err := row.SetBackends(usages); err != nil {
		return nil, err
	}

	if err := fs.dbClient.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"file_count", "folder_count", "total_capacity", "used_capacity", "backends_json", "refreshed_at",
			}),
		}).
		Create(&row).Error; err != nil {
		return nil, err
	}

	if err := queue.PublishStatsRefreshed(ctx, fs.mqClient, queue.StatsRefreshedPayload{
		Owner:         user.Name,
		FileCount:     fileCount,
		FolderCount:   folderCount,
		TotalCapacity: total,
		UsedCapacity:  used,
		Unreachable:   unreachable,
	}); err != nil {
		nlog.Logger().Warn().Err(err).Str("user", user.Name).Msg("failed to publish stats refreshed event")
	}

	return statsResponse(&row, usages), nil
}

// ReconcileAll 对账所有用户，定时任务入口；单用户失败不影响其余.
func (fs *FileService) ReconcileAll(ctx context.Context) error {
	var names []string
	if err := fs.dbClient.WithContext(ctx).Model(&model.User{}).
		Pluck("name", &names).Error; err != nil {
		return err
	}

	for _, name := range names {
		if _, err := fs.Reconcile(ctx, name); err != nil {
			nlog.Logger().Warn().Err(err).Str("user", name).Msg("stats reconciliation failed")
		}
	}

	return nil
}

func statsResponse(row *model.UsageStats, usages []model.BackendUsage) *types.StatsResponse {
	items := make([]types.BackendStatsItem, 0, len(usages))
	for _, u := range usages {
		items = append(items, types.BackendStatsItem{
			AccountID: u.AccountID,
			Label:     u.Label,
			Total:     u.Total,
			Used:      u.Used,
			Available: u.Available,
			Error:     u.Error,
		})
	}

	return &types.StatsResponse{
		FileCount:     row.FileCount,
		FolderCount:   row.FolderCount,
		TotalCapacity: row.TotalCapacity,
		UsedCapacity:  row.UsedCapacity,
		Backends:      items,
		RefreshedAt:   row.RefreshedAt,
	}
}
