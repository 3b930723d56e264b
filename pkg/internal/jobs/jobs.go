// Package jobs 注册周期性后台任务：边缘缓存清扫、上传会话回收、用量对账.
package jobs

import (
	"context"
	"time"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/service"
	nlog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/scheduler"
)

// 任务名，调度器接口按名称查询和移除.
const (
	JobEdgeCacheSweep = "edge-cache-sweep"
	JobSessionGC      = "upload-session-gc"
	JobStatsReconcile = "stats-reconcile"
)

const (
	// sessionGCCron 会话回收每分钟一次，宽限期精度到秒级没有意义.
	sessionGCCron = "* * * * *"
	// statsReconcileCron 全量对账每小时一次，写放大可控.
	statsReconcileCron = "0 * * * *"
)

// RegisterAll 把全部周期任务挂到调度器；ctx 需携带存储管理器.
func RegisterAll(ctx context.Context, sched *scheduler.Scheduler) error {
	cfg := configs.GetConfig()

	if cfg.Cache.Enabled {
		err := sched.AddCron(JobEdgeCacheSweep, cfg.Cache.SweepCron, func(ctx context.Context) {
			svc := service.NewFileService(ctx)
			if err := svc.SweepEdgeCache(ctx); err != nil {
				nlog.Logger().Warn().Err(err).Msg("edge cache sweep failed")
			}
		}, ctx)
		if err != nil {
			return err
		}
	}

	err := sched.AddCron(JobSessionGC, sessionGCCron, func(ctx context.Context) {
		removed := service.DefaultAdmission().GC(time.Now())
		if removed > 0 {
			nlog.Logger().Debug().Int("removed", removed).Msg("upload sessions collected")
		}
	}, ctx)
	if err != nil {
		return err
	}

	return sched.AddCron(JobStatsReconcile, statsReconcileCron, func(ctx context.Context) {
		svc := service.NewFileService(ctx)
		if err := svc.ReconcileAll(ctx); err != nil {
			nlog.Logger().Warn().Err(err).Msg("stats reconciliation pass failed")
		}
	}, ctx)
}
