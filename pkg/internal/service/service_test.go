package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	"github.com/omnivault/omnivault/pkg/internal/storage/db"
	"github.com/omnivault/omnivault/pkg/internal/storage/kv"
)

// fakeBackend 内存版后端账号，对象放 map 里.
type fakeBackend struct {
	mu      sync.Mutex
	label   string
	quota   backend.Quota
	objects map[string][]byte

	quotaErr  error
	putErr    error
	removeErr map[string]error // 按对象键注入删除失败
}

func newFakeBackend(label string, total int64) *fakeBackend {
	return &fakeBackend{
		label:     label,
		quota:     backend.Quota{Total: total},
		objects:   make(map[string][]byte),
		removeErr: make(map[string]error),
	}
}

func (f *fakeBackend) Label() string { return f.label }

func (f *fakeBackend) Quota(ctx context.Context) (backend.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.quotaErr != nil {
		return backend.Quota{}, f.quotaErr
	}

	q := f.quota
	for _, b := range f.objects {
		q.Used += int64(len(b))
	}

	return q, nil
}

func (f *fakeBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	if f.putErr != nil {
		return 0, f.putErr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()

	return int64(len(data)), nil
}

func (f *fakeBackend) Get(ctx context.Context, key string) (io.ReadCloser, backend.ObjectInfo, error) {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()

	if !ok {
		return nil, backend.ObjectInfo{}, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), backend.ObjectInfo{Size: int64(len(data))}, nil
}

func (f *fakeBackend) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.removeErr[key]; err != nil {
		return err
	}

	delete(f.objects, key)

	return nil
}

func (f *fakeBackend) SetPublic(ctx context.Context, key string, public bool) error { return nil }
func (f *fakeBackend) Health(ctx context.Context) error                            { return nil }
func (f *fakeBackend) Close() error                                                { return nil }

func (f *fakeBackend) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.objects)
}

// testEnv 一套隔离的服务依赖：sqlite 文件库 + 内存 KV + 假后端.
type testEnv struct {
	svc      *service.FileService
	db       *db.Client
	backends map[uint]*fakeBackend
	adm      *service.Admission
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("init config: %v", err)
	}

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(dir, "meta.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := gdb.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create kv: %v", err)
	}

	backends := make(map[uint]*fakeBackend)

	pool := backend.NewPool(store, func(ctx context.Context, account model.BackendAccount) (backend.Storage, error) {
		b, ok := backends[account.ID]
		if !ok {
			return nil, errors.New("unknown account")
		}

		return b, nil
	})

	dbc := &db.Client{DB: gdb}
	adm := service.NewAdmission(3, 5, time.Minute)
	svc := service.NewFileServiceWith(dbc, nil, pool).WithAdmission(adm)

	return &testEnv{svc: svc, db: dbc, backends: backends, adm: adm}
}

// seedUser 建用户并挂 n 个假后端账号，每个容量 capacity.
func (e *testEnv) seedUser(t *testing.T, name string, n int, capacity int64) *model.User {
	t.Helper()

	u := model.User{Name: name}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	for i := 0; i < n; i++ {
		acc := model.BackendAccount{
			UserID:   u.ID,
			Label:    fmt.Sprintf("acc-%d", i),
			Endpoint: "http://127.0.0.1:9000",
			Bucket:   "test",
			Capacity: capacity,
			Position: i,
		}
		if err := e.db.Create(&acc).Error; err != nil {
			t.Fatalf("create account: %v", err)
		}

		e.backends[acc.ID] = newFakeBackend(acc.Label, capacity)
	}

	return &u
}

// upload 上传一份小文件，返回文件信息.
func (e *testEnv) upload(t *testing.T, user, name string, folderID *uint, content string) *service.CreateFileRequest {
	t.Helper()

	return &service.CreateFileRequest{
		FileName: name,
		Size:     int64(len(content)),
		FolderID: folderID,
		Body:     bytes.NewReader([]byte(content)),
	}
}

func mustUpload(t *testing.T, e *testEnv, user, name string, folderID *uint, content string) uint {
	t.Helper()

	resp, err := e.svc.CreateFile(context.Background(), user, e.upload(t, user, name, folderID, content))
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}

	return resp.File.ID
}
