package service_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/service"
)

func TestCreateFileStoresBytesAndMetadata(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "hello.txt", nil, "hello world")

	var f model.File
	if err := e.db.First(&f, id).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	if f.Name != "hello" || f.Extension != "txt" || f.Size != 11 {
		t.Fatalf("file row = %+v", f)
	}

	res, err := e.svc.DownloadFile(ctx, "alice", id)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if string(data) != "hello world" {
		t.Fatalf("content = %q", data)
	}

	// 槽位已释放
	if e.adm.ActiveUploads(f.OwnerID) != 0 {
		t.Fatal("upload slot not released")
	}
}

func TestCreateFileSkipsFullAccount(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", 2, 100)

	// 填满第一个账号
	var first *fakeBackend

	var accs []model.BackendAccount
	if err := e.db.Where("user_id = ?", user.ID).Order("position ASC").Find(&accs).Error; err != nil {
		t.Fatalf("load accounts: %v", err)
	}

	first = e.backends[accs[0].ID]
	first.objects["filler"] = make([]byte, 95)

	id := mustUpload(t, e, "alice", "spill.bin", nil, "0123456789")

	var f model.File
	if err := e.db.First(&f, id).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	if f.AccountID != accs[1].ID {
		t.Fatalf("file landed on account %d, want %d (second)", f.AccountID, accs[1].ID)
	}

	if first.objectCount() != 1 {
		t.Fatal("first account should hold only the filler")
	}
}

func TestCreateFileCapacityExhausted(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 2, 100)

	req := e.upload(t, "alice", "huge.bin", nil, "x")
	req.Size = 1 << 30

	_, err := e.svc.CreateFile(context.Background(), "alice", req)
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestCreateFileSkipsUnreachableAccount(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", 2, 1<<20)

	var accs []model.BackendAccount
	if err := e.db.Where("user_id = ?", user.ID).Order("position ASC").Find(&accs).Error; err != nil {
		t.Fatalf("load accounts: %v", err)
	}

	e.backends[accs[0].ID].quotaErr = errors.New("endpoint down")

	id := mustUpload(t, e, "alice", "resilient.txt", nil, "ok")

	var f model.File
	if err := e.db.First(&f, id).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	if f.AccountID != accs[1].ID {
		t.Fatalf("file landed on account %d, want healthy second account %d", f.AccountID, accs[1].ID)
	}
}

func TestCreateFileRemoteFailureLeavesNoRecord(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	for _, b := range e.backends {
		b.putErr = errors.New("write refused")
	}

	_, err := e.svc.CreateFile(context.Background(), "alice", e.upload(t, "alice", "lost.txt", nil, "data"))
	if err == nil {
		t.Fatal("upload should fail when backend write fails")
	}

	var count int64
	if err := e.db.Model(&model.File{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if count != 0 {
		t.Fatalf("file rows = %d, want 0 (no partial metadata)", count)
	}
}

func TestDeleteFileIdempotence(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "gone.txt", nil, "bye")

	if err := e.svc.DeleteFile(ctx, "alice", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// 已删除的 id 再删必须报 NotFound，而不是静默成功
	if err := e.svc.DeleteFile(ctx, "alice", id); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}
