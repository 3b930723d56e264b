package backend_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	"github.com/omnivault/omnivault/pkg/internal/storage/kv"
)

// fakeStorage 可控的假后端账号.
type fakeStorage struct {
	label      string
	quota      backend.Quota
	quotaErr   error
	quotaCalls int
}

func (f *fakeStorage) Label() string { return f.label }

func (f *fakeStorage) Quota(ctx context.Context) (backend.Quota, error) {
	f.quotaCalls++

	if f.quotaErr != nil {
		return backend.Quota{}, f.quotaErr
	}

	return f.quota, nil
}

func (f *fakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	return size, nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	return nil, backend.ObjectInfo{}, errors.New("not implemented")
}

func (f *fakeStorage) Remove(ctx context.Context, key string) error               { return nil }
func (f *fakeStorage) SetPublic(ctx context.Context, key string, public bool) error { return nil }
func (f *fakeStorage) Health(ctx context.Context) error                            { return nil }
func (f *fakeStorage) Close() error                                                { return nil }

func newTestPool(t *testing.T, fakes map[uint]*fakeStorage) *backend.Pool {
	t.Helper()

	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("init config: %v", err)
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create kv: %v", err)
	}

	open := func(ctx context.Context, account model.BackendAccount) (backend.Storage, error) {
		s, ok := fakes[account.ID]
		if !ok {
			return nil, errors.New("unknown account")
		}

		return s, nil
	}

	return backend.NewPool(store, open)
}

func accounts(ids ...uint) []model.BackendAccount {
	out := make([]model.BackendAccount, 0, len(ids))
	for i, id := range ids {
		out = append(out, model.BackendAccount{ID: id, Label: string(rune('a' + i)), Position: i})
	}

	return out
}

func TestSelectFirstFit(t *testing.T) {
	fakes := map[uint]*fakeStorage{
		1: {label: "a", quota: backend.Quota{Total: 1000, Used: 950}},
		2: {label: "b", quota: backend.Quota{Total: 1000, Used: 100}},
		3: {label: "c", quota: backend.Quota{Total: 1000, Used: 0}},
	}
	pool := newTestPool(t, fakes)

	s, acct, err := pool.Select(context.Background(), accounts(1, 2, 3), 500)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}

	if s.Label() != "b" || acct.ID != 2 {
		t.Fatalf("expected account 2, got %q (id %d)", s.Label(), acct.ID)
	}
}

func TestSelectSkipsUnreachable(t *testing.T) {
	fakes := map[uint]*fakeStorage{
		1: {label: "a", quotaErr: errors.New("connection refused")},
		2: {label: "b", quota: backend.Quota{Total: 1000, Used: 0}},
	}
	pool := newTestPool(t, fakes)

	s, _, err := pool.Select(context.Background(), accounts(1, 2), 10)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}

	if s.Label() != "b" {
		t.Fatalf("expected unreachable account skipped, got %q", s.Label())
	}
}

func TestSelectInvalidSize(t *testing.T) {
	pool := newTestPool(t, nil)

	for _, size := range []int64{0, -1} {
		if _, _, err := pool.Select(context.Background(), accounts(1), size); !errors.Is(err, backend.ErrInvalidSize) {
			t.Fatalf("size %d: got %v, want ErrInvalidSize", size, err)
		}
	}
}

func TestSelectExhausted(t *testing.T) {
	fakes := map[uint]*fakeStorage{
		1: {label: "a", quota: backend.Quota{Total: 100, Used: 100}},
		2: {label: "b", quota: backend.Quota{Total: 100, Used: 95}},
	}
	pool := newTestPool(t, fakes)

	_, _, err := pool.Select(context.Background(), accounts(1, 2), 50)
	if !errors.Is(err, backend.ErrNoCapacity) {
		t.Fatalf("got %v, want ErrNoCapacity", err)
	}
}

func TestQuotaCached(t *testing.T) {
	fake := &fakeStorage{label: "a", quota: backend.Quota{Total: 100, Used: 10}}
	pool := newTestPool(t, map[uint]*fakeStorage{1: fake})
	acct := model.BackendAccount{ID: 1, Label: "a"}

	for range 3 {
		if _, err := pool.Quota(context.Background(), acct); err != nil {
			t.Fatalf("quota failed: %v", err)
		}
	}

	if fake.quotaCalls != 1 {
		t.Fatalf("backing quota called %d times, want 1", fake.quotaCalls)
	}

	pool.InvalidateQuota(context.Background(), 1)

	if _, err := pool.Quota(context.Background(), acct); err != nil {
		t.Fatalf("quota failed: %v", err)
	}

	if fake.quotaCalls != 2 {
		t.Fatalf("backing quota called %d times after invalidate, want 2", fake.quotaCalls)
	}
}

func TestQuotaFree(t *testing.T) {
	cases := []struct {
		q    backend.Quota
		free int64
	}{
		{backend.Quota{Total: 100, Used: 40}, 60},
		{backend.Quota{Total: 100, Used: 100}, 0},
		{backend.Quota{Total: 100, Used: 150}, 0},
	}

	for _, tc := range cases {
		if got := tc.q.Free(); got != tc.free {
			t.Fatalf("Free() of %+v = %d, want %d", tc.q, got, tc.free)
		}
	}
}
