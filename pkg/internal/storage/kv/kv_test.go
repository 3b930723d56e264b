package kv_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/omnivault/omnivault/pkg/internal/storage/kv"
)

func TestMemoryKVBasic(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "quota-acc-1", []byte(`{"used":42}`), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := store.Get(ctx, "quota-acc-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(got) != `{"used":42}` {
		t.Fatalf("unexpected value: %s", got)
	}

	exists, err := store.Exists(ctx, "quota-acc-1")
	if err != nil || !exists {
		t.Fatalf("expected key to exist, got exists=%v err=%v", exists, err)
	}

	if err := store.Delete(ctx, "quota-acc-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "quota-acc-1"); err == nil {
		t.Fatal("expected get after delete to fail")
	}
}

func TestMemoryKVTTLExpiry(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	// TTL 以秒为粒度，负过期时间立即失效
	if err := store.Set(ctx, "ephemeral", []byte("x"), -time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if v, err := store.Get(ctx, "ephemeral"); err != nil {
		t.Fatalf("get failed: %v", err)
	} else if string(v) != "x" {
		t.Fatalf("unexpected value: %s", v)
	}

	if err := store.Set(ctx, "expired", []byte("y"), time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// fake expiry by waiting past the unix-second boundary
	time.Sleep(2100 * time.Millisecond)

	if _, err := store.Get(ctx, "expired"); err == nil {
		t.Fatal("expected expired key to be gone")
	}

	if exists, _ := store.Exists(ctx, "expired"); exists {
		t.Fatal("expected expired key to not exist")
	}
}

func TestMemoryKVGetReturnsCopy(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "k", []byte("abc"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	first, _ := store.Get(ctx, "k")
	first[0] = 'z'

	second, _ := store.Get(ctx, "k")
	if string(second) != "abc" {
		t.Fatalf("stored value was mutated through returned slice: %s", second)
	}
}

func TestUnsupportedKVType(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), kv.KVType("etcd"), nil)
	if err == nil {
		t.Fatal("expected error for unregistered kv type")
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	payload := make([]byte, 1024)

	b.ReportAllocs()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("bench-%d", i)
		if err := store.Set(ctx, key, payload, 0); err != nil {
			b.Fatalf("set failed: %v", err)
		}

		if _, err := store.Get(ctx, key); err != nil {
			b.Fatalf("get failed: %v", err)
		}

		if err := store.Delete(ctx, key); err != nil {
			b.Fatalf("delete failed: %v", err)
		}
	}
}
