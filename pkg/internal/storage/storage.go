// Package storage 聚合元数据库、KV、MQ 与远端后端池等存储资源.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//
// 获取存储客户端
//
//	dbClient := mgr.GetDBClient()
//	pool := mgr.GetBackendPool()
package storage

import (
	"context"
	"sync"

	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	dbc "github.com/omnivault/omnivault/pkg/internal/storage/db"
	kvc "github.com/omnivault/omnivault/pkg/internal/storage/kv"
	mqc "github.com/omnivault/omnivault/pkg/internal/storage/mq"
	olog "github.com/omnivault/omnivault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB       *dbc.Client
	KV       *kvc.Client
	MQ       *mqc.Client
	Backends *backend.Pool
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置.重复调用只返回已初始化实例.
// MQ 初始化失败只记录告警，事件发布降级为 no-op.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx)
		if e != nil {
			err = e
			return
		}

		m.DB = dbi

		// KV
		kvi, e := kvc.NewKVClient(ctx)
		if e != nil {
			err = e
			return
		}

		m.KV = kvi

		// MQ（可选）
		if mqi, e := mqc.New(ctx); e != nil {
			olog.Logger().Warn().Err(e).Msg("mq unavailable, events disabled")
		} else {
			m.MQ = mqi
		}

		// 后端池
		m.Backends = backend.NewPool(m.KV, nil)

		mgr = m

		olog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// NewManager 组装一个非单例的管理器，测试和工具代码使用.
func NewManager(db *dbc.Client, kv *kvc.Client, mq *mqc.Client, pool *backend.Pool) *Manager {
	return &Manager{DB: db, KV: kv, MQ: mq, Backends: pool}
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetBackendPool 获取远端后端池.
func (m *Manager) GetBackendPool() *backend.Pool {
	return m.Backends
}
