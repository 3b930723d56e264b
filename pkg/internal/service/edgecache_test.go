package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

// withEdgeCacheDir 把缓存目录指到测试临时目录，避免污染工作目录.
func withEdgeCacheDir(t *testing.T, ttlSeconds int) string {
	t.Helper()

	dir := t.TempDir()
	cfgDir := t.TempDir()

	cfg := fmt.Sprintf("cache:\n  dir: %s\n  ttl_seconds: %d\n", dir, ttlSeconds)
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := configs.InitConfig(cfgDir); err != nil {
		t.Fatalf("init config: %v", err)
	}

	return dir
}

func markPublic(t *testing.T, e *testEnv, id uint) {
	t.Helper()

	if err := e.db.Model(&model.File{}).Where("id = ?", id).Update("is_public", true).Error; err != nil {
		t.Fatalf("mark public: %v", err)
	}
}

func TestStreamPublicFileMaterializesCopy(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)
	dir := withEdgeCacheDir(t, 3600)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "shared.txt", nil, "public bytes")
	markPublic(t, e, id)

	res, err := e.svc.StreamPublicFile(ctx, id)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := res.Body.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if string(data) != "public bytes" {
		t.Fatalf("content = %q", data)
	}

	// Close 之后副本已提交，指针已写回
	var f model.File
	if err := e.db.First(&f, id).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	if f.CachedPath == "" || f.CachedAt == nil {
		t.Fatalf("cache pointer not recorded: %+v", f)
	}

	if filepath.Dir(f.CachedPath) != dir {
		t.Fatalf("cached at %q, want under %q", f.CachedPath, dir)
	}

	// 第二次读走本地副本，远端挂掉也能服务
	for _, b := range e.backends {
		b.quotaErr = errors.New("down")
		b.objects = map[string][]byte{}
	}

	res2, err := e.svc.StreamPublicFile(ctx, id)
	if err != nil {
		t.Fatalf("stream from cache: %v", err)
	}
	defer res2.Body.Close()

	data2, err := io.ReadAll(res2.Body)
	if err != nil {
		t.Fatalf("read cached: %v", err)
	}

	if string(data2) != "public bytes" {
		t.Fatalf("cached content = %q", data2)
	}
}

func TestStreamPrivateFileForbidden(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	id := mustUpload(t, e, "alice", "secret.txt", nil, "private")

	if _, err := e.svc.StreamPublicFile(context.Background(), id); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestSweepEvictsExpiredCopies(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)
	withEdgeCacheDir(t, 3600)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "old.txt", nil, "stale")
	markPublic(t, e, id)

	res, err := e.svc.StreamPublicFile(ctx, id)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_ = res.Body.Close()

	// 把缓存时间拨回过去，让条目过期
	past := time.Now().Add(-48 * time.Hour)
	if err := e.db.Model(&model.File{}).Where("id = ?", id).Update("cached_at", past).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	var before model.File
	if err := e.db.First(&before, id).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := e.svc.SweepEdgeCache(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var after model.File
	if err := e.db.First(&after, id).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if after.CachedPath != "" || after.CachedAt != nil {
		t.Fatalf("cache pointer should be cleared: %+v", after)
	}

	if _, err := os.Stat(before.CachedPath); !os.IsNotExist(err) {
		t.Fatalf("cached copy should be deleted: %v", err)
	}

	// 远端对象不受清扫影响
	if _, err := e.svc.DownloadFile(ctx, "alice", id); err != nil {
		t.Fatalf("remote object must survive sweep: %v", err)
	}
}

func TestUpdateFileTurningPrivateDropsCache(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)
	withEdgeCacheDir(t, 3600)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "flip.txt", nil, "cached")
	markPublic(t, e, id)

	res, err := e.svc.StreamPublicFile(ctx, id)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_ = res.Body.Close()

	pub := false
	if _, err := e.svc.UpdateFile(ctx, "alice", id, &types.UpdateFileRequest{IsPublic: &pub}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var f model.File
	if err := e.db.First(&f, id).Error; err != nil {
		t.Fatalf("load: %v", err)
	}

	if f.CachedPath != "" {
		t.Fatal("cache pointer should be cleared when file turns private")
	}
}
