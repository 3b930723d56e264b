package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omnivault/omnivault/pkg/cache"
)

// quotaSnapshot 测试用的配额快照结构体.
type quotaSnapshot struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
}

// mockKVStore 模拟KV存储实现.
type mockKVStore struct {
	data    map[string][]byte
	failSet bool
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		data: make(map[string][]byte),
	}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, exists := m.data[key]; exists {
		return value, nil
	}

	return nil, errors.New("key not found")
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.failSet {
		return errors.New("set failed")
	}

	m.data[key] = value

	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := m.data[key]
	return exists, nil
}

func (m *mockKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	return keys, nil
}

func (m *mockKVStore) Close() error {
	return nil
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(newMockKVStore())

	snap := quotaSnapshot{Total: 15 << 30, Used: 1024}
	if err := cache.Set(ctx, c, "quota:acc:1", snap, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := cache.Get[quotaSnapshot](ctx, c, "quota:acc:1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if got != snap {
		t.Fatalf("got %+v, want %+v", got, snap)
	}
}

func TestCacheGetMiss(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(newMockKVStore())

	if _, err := cache.Get[quotaSnapshot](ctx, c, "missing"); err == nil {
		t.Fatal("expected miss error")
	}
}

func TestCacheGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(newMockKVStore())

	calls := 0
	getter := func() (quotaSnapshot, error) {
		calls++
		return quotaSnapshot{Total: 100, Used: 10}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "quota:acc:2", getter, time.Minute)
	if err != nil {
		t.Fatalf("getorset failed: %v", err)
	}

	second, err := cache.GetOrSet(ctx, c, "quota:acc:2", getter, time.Minute)
	if err != nil {
		t.Fatalf("getorset failed: %v", err)
	}

	if first != second {
		t.Fatalf("values differ: %+v vs %+v", first, second)
	}

	if calls != 1 {
		t.Fatalf("getter called %d times, want 1", calls)
	}
}

func TestCacheGetOrSetGetterError(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(newMockKVStore())

	wantErr := errors.New("backend unreachable")

	_, err := cache.GetOrSet(ctx, c, "quota:acc:3", func() (quotaSnapshot, error) {
		return quotaSnapshot{}, wantErr
	}, time.Minute)

	if !errors.Is(err, wantErr) {
		t.Fatalf("got err %v, want %v", err, wantErr)
	}
}

func TestCacheGetOrSetCacheWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := newMockKVStore()
	store.failSet = true
	c := cache.NewCache(store)

	// 缓存写入失败时仍返回新值
	got, err := cache.GetOrSet(ctx, c, "quota:acc:4", func() (quotaSnapshot, error) {
		return quotaSnapshot{Total: 7}, nil
	}, time.Minute)
	if err != nil {
		t.Fatalf("getorset failed: %v", err)
	}

	if got.Total != 7 {
		t.Fatalf("unexpected value: %+v", got)
	}
}

func TestCacheDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(newMockKVStore())

	_ = cache.Set(ctx, c, "k", 1, 0)

	exists, _ := c.Exists(ctx, "k")
	if !exists {
		t.Fatal("expected key to exist")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	exists, _ = c.Exists(ctx, "k")
	if exists {
		t.Fatal("expected key to be gone")
	}
}
