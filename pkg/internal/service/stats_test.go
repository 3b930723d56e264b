package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/omnivault/omnivault/pkg/internal/model"
)

func TestReconcileAggregatesAccounts(t *testing.T) {
	e := newTestEnv(t)
	e.seedUser(t, "alice", 2, 1000)

	ctx := context.Background()

	mustUpload(t, e, "alice", "one.txt", nil, "12345")

	resp, err := e.svc.Reconcile(ctx, "alice")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if resp.TotalCapacity != 2000 {
		t.Fatalf("total = %d, want 2000", resp.TotalCapacity)
	}

	if resp.UsedCapacity != 5 {
		t.Fatalf("used = %d, want 5", resp.UsedCapacity)
	}

	if resp.FileCount != 1 || resp.FolderCount != 0 {
		t.Fatalf("counts = %d files / %d folders", resp.FileCount, resp.FolderCount)
	}

	if len(resp.Backends) != 2 {
		t.Fatalf("backend rows = %d, want 2", len(resp.Backends))
	}
}

func TestReconcileToleratesUnreachableAccount(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", 2, 1000)

	var accs []model.BackendAccount
	if err := e.db.Where("user_id = ?", user.ID).Order("position ASC").Find(&accs).Error; err != nil {
		t.Fatalf("load accounts: %v", err)
	}

	e.backends[accs[0].ID].quotaErr = errors.New("connection refused")

	resp, err := e.svc.Reconcile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("reconcile must not abort on one unreachable account: %v", err)
	}

	// 只统计可达账号的容量
	if resp.TotalCapacity != 1000 {
		t.Fatalf("total = %d, want 1000", resp.TotalCapacity)
	}

	var withErr int
	for _, b := range resp.Backends {
		if b.Error != "" {
			withErr++
		}
	}

	if withErr != 1 {
		t.Fatalf("accounts with error = %d, want 1", withErr)
	}

	// 快照已落库
	var row model.UsageStats
	if err := e.db.Where("user_id = ?", user.ID).First(&row).Error; err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
}

func TestGetStatsSeedsSnapshotOnFirstCall(t *testing.T) {
	e := newTestEnv(t)
	user := e.seedUser(t, "alice", 1, 1000)

	resp, err := e.svc.GetStats(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}

	if resp.TotalCapacity != 1000 {
		t.Fatalf("total = %d, want 1000", resp.TotalCapacity)
	}

	var row model.UsageStats
	if err := e.db.Where("user_id = ?", user.ID).First(&row).Error; err != nil {
		t.Fatalf("snapshot should exist after first GetStats: %v", err)
	}
}
