package service_test

import (
	"context"
	"testing"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

func TestCreateFolderRenameCounter(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	want := []string{"docs", "docs (1)", "docs (2)"}
	for _, w := range want {
		info, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "docs"})
		if err != nil {
			t.Fatalf("create folder: %v", err)
		}

		if info.Name != w {
			t.Fatalf("folder name = %q, want %q", info.Name, w)
		}
	}
}

func TestCreateFolderCounterNotStacked(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	if _, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "report (1)"}); err != nil {
		t.Fatalf("create folder: %v", err)
	}

	info, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "report (1)"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	// 编号替换而不是叠加，绝不出现 "report (1) (1)"
	if info.Name != "report (2)" {
		t.Fatalf("folder name = %q, want %q", info.Name, "report (2)")
	}
}

func TestUploadRenamePlacesCounterBeforeExtension(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	mustUpload(t, e, "alice", "notes.txt", nil, "one")
	id := mustUpload(t, e, "alice", "notes.txt", nil, "two")

	info, err := e.svc.GetFile(context.Background(), "alice", id)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}

	if info.FullName != "notes (1).txt" {
		t.Fatalf("full name = %q, want %q", info.FullName, "notes (1).txt")
	}
}

func TestUploadExtensionlessNames(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	for _, name := range []string{"README", ".bashrc", "archive."} {
		id := mustUpload(t, e, "alice", name, nil, "data")

		info, err := e.svc.GetFile(ctx, "alice", id)
		if err != nil {
			t.Fatalf("get file: %v", err)
		}

		if info.Extension != "" {
			t.Fatalf("%q: extension = %q, want empty", name, info.Extension)
		}

		if info.FullName != name {
			t.Fatalf("%q: full name = %q", name, info.FullName)
		}
	}
}

func TestUploadOverwriteReplacesExisting(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	first := mustUpload(t, e, "alice", "plan.md", nil, "v1")

	req := e.upload(t, "alice", "plan.md", nil, "v2-longer")
	req.OnConflict = types.ConflictOverwrite

	resp, err := e.svc.CreateFile(ctx, "alice", req)
	if err != nil {
		t.Fatalf("overwrite upload: %v", err)
	}

	if resp.File.FullName != "plan.md" {
		t.Fatalf("full name = %q, want plan.md", resp.File.FullName)
	}

	if _, err := e.svc.GetFile(ctx, "alice", first); err == nil {
		t.Fatal("overwritten file still present")
	}

	var count int64
	if err := e.db.Model(&model.File{}).Where("name = ?", "plan").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if count != 1 {
		t.Fatalf("file rows = %d, want 1", count)
	}

	// 远端只剩一份对象
	for _, b := range e.backends {
		if b.objectCount() != 1 {
			t.Fatalf("backend objects = %d, want 1", b.objectCount())
		}
	}
}

func TestRenameStrictlyIncreasing(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	seen := make(map[string]bool)

	for i := 0; i < 5; i++ {
		info, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "dup"})
		if err != nil {
			t.Fatalf("create folder: %v", err)
		}

		if seen[info.Name] {
			t.Fatalf("name %q returned twice", info.Name)
		}

		seen[info.Name] = true
	}
}
