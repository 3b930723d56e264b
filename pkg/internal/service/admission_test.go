package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/omnivault/omnivault/pkg/internal/service"
	"github.com/omnivault/omnivault/pkg/internal/types"
)

func TestAdmitRejectsBeyondLimit(t *testing.T) {
	adm := service.NewAdmission(2, 5, time.Minute)

	_, rel1, err := adm.Admit(1, "", "a.txt", 100)
	if err != nil {
		t.Fatalf("admit 1: %v", err)
	}

	_, rel2, err := adm.Admit(1, "", "b.txt", 100)
	if err != nil {
		t.Fatalf("admit 2: %v", err)
	}

	if _, _, err := adm.Admit(1, "", "c.txt", 100); !errors.Is(err, service.ErrUploadLimit) {
		t.Fatalf("third admit = %v, want ErrUploadLimit", err)
	}

	// 别的用户不受影响
	if _, rel, err := adm.Admit(2, "", "d.txt", 100); err != nil {
		t.Fatalf("other user admit: %v", err)
	} else {
		rel()
	}

	rel1()

	if _, rel, err := adm.Admit(1, "", "c.txt", 100); err != nil {
		t.Fatalf("admit after release: %v", err)
	} else {
		rel()
	}

	rel2()

	if adm.ActiveUploads(1) != 0 {
		t.Fatalf("active = %d, want 0", adm.ActiveUploads(1))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	adm := service.NewAdmission(2, 5, time.Minute)

	_, rel, err := adm.Admit(1, "", "a.txt", 100)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	rel()
	rel()
	rel()

	if adm.ActiveUploads(1) != 0 {
		t.Fatalf("active = %d, want 0", adm.ActiveUploads(1))
	}
}

func TestProgressBucketsAdvanceOnly(t *testing.T) {
	adm := service.NewAdmission(1, 10, time.Minute)

	sid, rel, err := adm.Admit(1, "", "big.bin", 1000)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	defer rel()

	events, ok := adm.Events(1, sid)
	if !ok {
		t.Fatal("session events missing")
	}

	// 10 份各 1% 的增量只应推一个 10% 事件
	for i := 0; i < 10; i++ {
		adm.Progress(1, sid, 10)
	}

	adm.Finish(1, sid, types.UploadStatusCompleted, "")

	var got []types.ProgressEvent
	for ev := range events {
		got = append(got, ev)
	}

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2 (bucket + terminal), got %+v", len(got), got)
	}

	if got[0].Progress != 10 || got[0].Status != types.UploadStatusUploading {
		t.Fatalf("first event = %+v", got[0])
	}

	if got[1].Progress != 100 || got[1].Status != types.UploadStatusCompleted {
		t.Fatalf("terminal event = %+v", got[1])
	}
}

func TestAdmitRejectsDuplicateSession(t *testing.T) {
	adm := service.NewAdmission(5, 5, time.Minute)

	sid, rel, err := adm.Admit(1, "dup", "a.txt", 100)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	// 同名活跃会话不能顶替第一个的事件通道
	if _, _, err := adm.Admit(1, "dup", "b.txt", 100); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("duplicate admit = %v, want ErrValidation", err)
	}

	events, ok := adm.Events(1, sid)
	if !ok {
		t.Fatal("session events missing")
	}

	adm.Finish(1, sid, types.UploadStatusCompleted, "")
	rel()

	var last types.ProgressEvent
	for ev := range events {
		last = ev
	}

	if !last.Status.Terminal() {
		t.Fatalf("first session never saw a terminal event, last = %+v", last)
	}

	// 终态之后同名会话可以重新开始
	if _, rel2, err := adm.Admit(1, "dup", "c.txt", 100); err != nil {
		t.Fatalf("admit after finish: %v", err)
	} else {
		rel2()
	}
}

func TestTerminalEventSurvivesFullBuffer(t *testing.T) {
	adm := service.NewAdmission(1, 5, time.Minute)

	sid, rel, err := adm.Admit(1, "", "big.bin", 2000)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	defer rel()

	// 没挂消费者就推满全部 20 个 5% 桶
	for i := 0; i < 20; i++ {
		adm.Progress(1, sid, 100)
	}

	adm.Finish(1, sid, types.UploadStatusCompleted, "")

	events, ok := adm.Events(1, sid)
	if !ok {
		t.Fatal("session events missing")
	}

	var last types.ProgressEvent

	n := 0
	for ev := range events {
		last = ev
		n++
	}

	if n != 21 {
		t.Fatalf("events = %d, want 21 (20 buckets + terminal)", n)
	}

	if last.Status != types.UploadStatusCompleted || last.Progress != 100 {
		t.Fatalf("terminal event = %+v", last)
	}
}

func TestFinishClosesChannelOnce(t *testing.T) {
	adm := service.NewAdmission(1, 5, time.Minute)

	sid, rel, err := adm.Admit(1, "", "x.txt", 10)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	defer rel()

	events, _ := adm.Events(1, sid)

	adm.Finish(1, sid, types.UploadStatusFailed, "boom")
	// 重复 Finish 不应 panic
	adm.Finish(1, sid, types.UploadStatusCompleted, "")

	var last types.ProgressEvent
	for ev := range events {
		last = ev
	}

	if last.Status != types.UploadStatusFailed || last.Error != "boom" {
		t.Fatalf("terminal event = %+v", last)
	}
}

func TestSessionGC(t *testing.T) {
	adm := service.NewAdmission(1, 5, 10*time.Millisecond)

	sid, rel, err := adm.Admit(1, "", "x.txt", 10)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	adm.Finish(1, sid, types.UploadStatusCompleted, "")
	rel()

	// 宽限期内会话还在
	if n := adm.GC(time.Now()); n != 0 {
		t.Fatalf("gc removed %d sessions before grace elapsed", n)
	}

	if n := adm.GC(time.Now().Add(time.Second)); n != 1 {
		t.Fatalf("gc removed %d sessions, want 1", n)
	}

	if _, ok := adm.Events(1, sid); ok {
		t.Fatal("session should be gone after gc")
	}
}
