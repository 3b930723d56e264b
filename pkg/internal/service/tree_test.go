package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

func TestDeleteFolderRecursive(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 2, 1<<20)

	ctx := context.Background()

	root, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "project"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	sub, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "src", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("create subfolder: %v", err)
	}

	mustUpload(t, e, "alice", "a.txt", &root.ID, "aaa")
	mustUpload(t, e, "alice", "b.txt", &root.ID, "bbb")
	mustUpload(t, e, "alice", "c.go", &sub.ID, "ccc")

	resp, err := e.svc.DeleteFolder(ctx, "alice", root.ID)
	if err != nil {
		t.Fatalf("delete folder: %v", err)
	}

	if resp.DeletedFiles != 3 {
		t.Fatalf("deleted files = %d, want 3", resp.DeletedFiles)
	}

	if resp.DeletedFolders != 2 {
		t.Fatalf("deleted folders = %d, want 2", resp.DeletedFolders)
	}

	if resp.FailedFiles != 0 {
		t.Fatalf("failed files = %d, want 0", resp.FailedFiles)
	}

	// 每个文件和文件夹各一条明细
	if len(resp.Results) != 5 {
		t.Fatalf("results = %d, want 5, got %+v", len(resp.Results), resp.Results)
	}

	for _, r := range resp.Results {
		if !r.Success {
			t.Fatalf("unexpected failed item %+v", r)
		}
	}

	var remaining int64
	if err := e.db.Model(&model.File{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}

	if remaining != 0 {
		t.Fatalf("file rows remaining = %d", remaining)
	}

	for _, b := range e.backends {
		if b.objectCount() != 0 {
			t.Fatalf("backend %s still holds %d objects", b.Label(), b.objectCount())
		}
	}
}

func TestDeleteFolderPartialFailure(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	folder, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "mixed"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	mustUpload(t, e, "alice", "ok.txt", &folder.ID, "fine")
	stuck := mustUpload(t, e, "alice", "stuck.txt", &folder.ID, "nope")

	var stuckFile model.File
	if err := e.db.First(&stuckFile, stuck).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}

	for _, b := range e.backends {
		b.removeErr[stuckFile.ObjectKey] = errors.New("backend rejected delete")
	}

	resp, err := e.svc.DeleteFolder(ctx, "alice", folder.ID)
	if err != nil {
		t.Fatalf("delete folder: %v", err)
	}

	if resp.DeletedFiles != 1 {
		t.Fatalf("deleted files = %d, want 1", resp.DeletedFiles)
	}

	if resp.FailedFiles != 1 {
		t.Fatalf("failed files = %d, want 1", resp.FailedFiles)
	}

	if resp.RetainedFolders != 1 {
		t.Fatalf("retained folders = %d, want 1", resp.RetainedFolders)
	}

	// 明细必须点名是哪个文件删不掉
	var failedFiles []types.BatchResult
	for _, r := range resp.Results {
		if r.Kind == "file" && !r.Success {
			failedFiles = append(failedFiles, r)
		}
	}

	if len(failedFiles) != 1 || failedFiles[0].ID != stuck {
		t.Fatalf("failed file results = %+v, want one entry for file %d", failedFiles, stuck)
	}

	if failedFiles[0].Error == "" {
		t.Fatal("failed item should carry the backend error")
	}

	// 删不掉的文件元数据保留，可重试；文件夹也随之保留
	if err := e.db.First(&model.File{}, stuck).Error; err != nil {
		t.Fatalf("failed file record should persist: %v", err)
	}

	if err := e.db.First(&model.Folder{}, folder.ID).Error; err != nil {
		t.Fatalf("folder record should persist while it has live children: %v", err)
	}
}

func TestDeleteManyOneResultPerItem(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)
	e.seedUser(t, "bob", 1, 1<<20)

	ctx := context.Background()

	mine := mustUpload(t, e, "alice", "mine.txt", nil, "x")
	theirs := mustUpload(t, e, "bob", "theirs.txt", nil, "y")

	folder, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "junk"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	missing := uint(99999)
	both := mine

	req := &types.BatchDeleteRequest{Items: []types.BatchItem{
		{FileID: &mine},
		{FolderID: &folder.ID},
		{FileID: &missing},
		{FileID: &theirs},                     // 别人的文件
		{FileID: &both, FolderID: &folder.ID}, // 两个 id 都带，非法
	}}

	resp, err := e.svc.DeleteMany(ctx, "alice", req)
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}

	if len(resp.Results) != len(req.Items) {
		t.Fatalf("results = %d, want %d", len(resp.Results), len(req.Items))
	}

	if resp.Total != 5 || resp.Success != 2 || resp.Failed != 3 {
		t.Fatalf("counts = %d/%d/%d, want 5/2/3", resp.Total, resp.Success, resp.Failed)
	}

	wantSuccess := []bool{true, true, false, false, false}
	for i, r := range resp.Results {
		if r.Success != wantSuccess[i] {
			t.Fatalf("result[%d].Success = %v, want %v (%s)", i, r.Success, wantSuccess[i], r.Error)
		}
	}

	// 别人的文件原封不动
	if err := e.db.First(&model.File{}, theirs).Error; err != nil {
		t.Fatalf("foreign file must survive: %v", err)
	}
}

func TestUpdateManyMixed(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	id := mustUpload(t, e, "alice", "draft.txt", nil, "text")

	folder, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "inbox"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	newName := "final.txt"
	folderName := "archive"
	missing := uint(424242)

	req := &types.BatchUpdateRequest{Items: []types.BatchUpdateItem{
		{BatchItem: types.BatchItem{FileID: &id}, Name: &newName, MoveTo: &folder.ID},
		{BatchItem: types.BatchItem{FolderID: &folder.ID}, Name: &folderName},
		{BatchItem: types.BatchItem{FileID: &missing}},
	}}

	resp, err := e.svc.UpdateMany(ctx, "alice", req)
	if err != nil {
		t.Fatalf("update many: %v", err)
	}

	if resp.Success != 2 || resp.Failed != 1 {
		t.Fatalf("success/failed = %d/%d, want 2/1", resp.Success, resp.Failed)
	}

	info, err := e.svc.GetFile(ctx, "alice", id)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}

	if info.FullName != "final.txt" || info.FolderID == nil || *info.FolderID != folder.ID {
		t.Fatalf("file not updated: %+v", info)
	}
}

func TestMoveFolderIntoDescendantRejected(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 1, 1<<20)

	ctx := context.Background()

	parent, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "outer"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	child, err := e.svc.CreateFolder(ctx, "alice", &types.CreateFolderRequest{Name: "inner", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	if _, err := e.svc.UpdateFolder(ctx, "alice", parent.ID, &types.UpdateFolderRequest{ParentID: &child.ID}); err == nil {
		t.Fatal("moving a folder into its descendant must fail")
	}
}
