package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/omnivault/omnivault/pkg/cache"
	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/storage/kv"
	olog "github.com/omnivault/omnivault/pkg/log"
)

// OpenFunc 打开一个账号客户端；测试时注入假实现.
type OpenFunc func(ctx context.Context, account model.BackendAccount) (Storage, error)

// Pool 管理所有已打开的账号客户端并按实时余量做首次适配分配.
// 配额快照经 KV 缓存短暂复用，避免每次上传都全量列举远端对象.
type Pool struct {
	mu     sync.Mutex
	open   map[uint]Storage
	openFn OpenFunc

	quotaCache *cache.Cache
	quotaTTL   time.Duration
}

// NewPool 创建后端池.openFn 为 nil 时使用 MinIO 实现.
func NewPool(kvStore kv.KVStore, openFn OpenFunc) *Pool {
	if openFn == nil {
		openFn = NewMinioStorage
	}

	cfg := configs.GetConfig().Backends

	return &Pool{
		open:       make(map[uint]Storage),
		openFn:     openFn,
		quotaCache: cache.NewCache(kvStore),
		quotaTTL:   time.Duration(cfg.QuotaCacheTTLSeconds) * time.Second,
	}
}

func quotaKey(accountID uint) string {
	return fmt.Sprintf("quota:acc:%d", accountID)
}

// Client 返回账号的客户端，按账号 ID 复用已打开的连接.
func (p *Pool) Client(ctx context.Context, account model.BackendAccount) (Storage, error) {
	p.mu.Lock()
	if s, ok := p.open[account.ID]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	// 打开连接不持锁，慢端点不阻塞其他账号
	s, err := p.openFn(ctx, account)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 并发打开时保留先到的
	if prev, ok := p.open[account.ID]; ok {
		_ = s.Close()
		return prev, nil
	}

	p.open[account.ID] = s

	return s, nil
}

// Forget 丢弃账号的客户端与配额缓存（账号被卸载时调用）.
func (p *Pool) Forget(ctx context.Context, accountID uint) {
	p.mu.Lock()
	s, ok := p.open[accountID]
	delete(p.open, accountID)
	p.mu.Unlock()

	if ok {
		_ = s.Close()
	}

	_ = p.quotaCache.Delete(ctx, quotaKey(accountID))
}

// Quota 取账号配额，短 TTL 缓存内直接复用快照.
func (p *Pool) Quota(ctx context.Context, account model.BackendAccount) (Quota, error) {
	return cache.GetOrSet(ctx, p.quotaCache, quotaKey(account.ID), func() (Quota, error) {
		s, err := p.Client(ctx, account)
		if err != nil {
			return Quota{}, err
		}

		return s.Quota(ctx)
	}, p.quotaTTL)
}

// InvalidateQuota 主动失效配额快照（上传/删除后调用）.
func (p *Pool) InvalidateQuota(ctx context.Context, accountID uint) {
	_ = p.quotaCache.Delete(ctx, quotaKey(accountID))
}

// Select 按账号顺序做首次适配：余量不足或配额不可得的账号直接跳过.
// requiredBytes 非正视为调用方错误；全部跳过后返回 ErrNoCapacity.
func (p *Pool) Select(ctx context.Context, accounts []model.BackendAccount, requiredBytes int64) (Storage, *model.BackendAccount, error) {
	if requiredBytes <= 0 {
		return nil, nil, ErrInvalidSize
	}

	for i := range accounts {
		account := accounts[i]

		q, err := p.Quota(ctx, account)
		if err != nil {
			olog.Logger().Warn().
				Err(err).
				Str("account", account.Label).
				Msg("skip unreachable account")

			continue
		}

		if q.Free() < requiredBytes {
			continue
		}

		s, err := p.Client(ctx, account)
		if err != nil {
			olog.Logger().Warn().
				Err(err).
				Str("account", account.Label).
				Msg("skip account: open client failed")

			continue
		}

		return s, &account, nil
	}

	return nil, nil, ErrNoCapacity
}

// Close 关闭池内全部客户端.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error

	for id, s := range p.open {
		if e := s.Close(); e != nil {
			err = e
		}

		delete(p.open, id)
	}

	return err
}
