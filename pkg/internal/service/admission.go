package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/types"
	"github.com/omnivault/omnivault/pkg/metrics"
)

type sessionKey struct {
	UserID    uint
	SessionID string
}

// uploadSession 一次上传的进度状态与事件通道.
type uploadSession struct {
	fileName   string
	total      int64
	received   int64
	lastBucket int
	status     types.UploadStatus
	events     chan types.ProgressEvent
	closed     bool
	doneAt     time.Time
}

// Admission 每用户上传并发闸门加进度事件分发.
// 活跃计数是唯一的共享可变状态，只经 Admit 返回的 release 成对变更.
type Admission struct {
	mu       sync.Mutex
	active   map[uint]int
	sessions map[sessionKey]*uploadSession

	limit   int
	stepPct int
	grace   time.Duration
}

// NewAdmission 按显式参数构造，测试用.
func NewAdmission(limit, stepPct int, grace time.Duration) *Admission {
	if limit <= 0 {
		limit = configs.DefaultMaxUploadsPerUser
	}

	if stepPct <= 0 || stepPct > 100 {
		stepPct = configs.DefaultProgressStepPercent
	}

	return &Admission{
		active:   make(map[uint]int),
		sessions: make(map[sessionKey]*uploadSession),
		limit:    limit,
		stepPct:  stepPct,
		grace:    grace,
	}
}

var (
	admissionOnce sync.Once
	admission     *Admission
)

// DefaultAdmission 进程级单例，按配置初始化.
func DefaultAdmission() *Admission {
	admissionOnce.Do(func() {
		cfg := configs.GetConfig().Upload
		admission = NewAdmission(cfg.MaxPerUser, cfg.ProgressStepPct, cfg.GraceDuration())
	})

	return admission
}

// Admit 尝试占用一个上传槽位，不排队，满了立刻拒绝.
// 返回实际会话 id（空请求会生成一个）和必须恰好调用一次的释放函数.
func (a *Admission) Admit(userID uint, sessionID, fileName string, total int64) (string, func(), error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := sessionKey{UserID: userID, SessionID: sessionID}
	if s, ok := a.sessions[key]; ok && !s.closed {
		// 同名活跃会话不能顶替，否则旧通道的订阅者永远等不到终态
		return "", nil, fmt.Errorf("%w: upload session %q is still active", ErrValidation, sessionID)
	}

	if a.active[userID] >= a.limit {
		metrics.UploadRejected.Inc()

		return "", nil, ErrUploadLimit
	}

	a.active[userID]++

	// 缓冲按桶数加一个终态事件取满配，无消费者也不会丢终态
	a.sessions[key] = &uploadSession{
		fileName:   fileName,
		total:      total,
		lastBucket: 0,
		status:     types.UploadStatusUploading,
		events:     make(chan types.ProgressEvent, 100/a.stepPct+1),
	}

	var once sync.Once

	release := func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()

			if a.active[userID] > 0 {
				a.active[userID]--
			}

			if a.active[userID] == 0 {
				delete(a.active, userID)
			}
		})
	}

	return sessionID, release, nil
}

// Progress 累计收到的字节，百分比桶前进时才推事件.
func (a *Admission) Progress(userID uint, sessionID string, delta int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionKey{UserID: userID, SessionID: sessionID}]
	if !ok || s.closed {
		return
	}

	s.received += delta

	if s.total <= 0 {
		return
	}

	pct := int(s.received * 100 / s.total)
	if pct > 100 {
		pct = 100
	}

	bucket := pct / a.stepPct
	if bucket <= s.lastBucket {
		return
	}

	s.lastBucket = bucket
	emit(s, types.ProgressEvent{
		FileName: s.fileName,
		Progress: bucket * a.stepPct,
		Status:   types.UploadStatusUploading,
	})
}

// Finish 打终态事件并关闭通道；通道在宽限期后由 GC 摘除.
func (a *Admission) Finish(userID uint, sessionID string, status types.UploadStatus, errMsg string) {
	if !status.Terminal() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionKey{UserID: userID, SessionID: sessionID}]
	if !ok || s.closed {
		return
	}

	progress := 0
	if status == types.UploadStatusCompleted {
		progress = 100
	} else if s.total > 0 {
		progress = int(s.received * 100 / s.total)
		if progress > 100 {
			progress = 100
		}
	}

	emit(s, types.ProgressEvent{
		FileName: s.fileName,
		Progress: progress,
		Status:   status,
		Error:    errMsg,
	})

	s.status = status
	s.closed = true
	s.doneAt = time.Now()
	close(s.events)
}

// Events 返回会话的事件通道，终态关闭.
func (a *Admission) Events(userID uint, sessionID string) (<-chan types.ProgressEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionKey{UserID: userID, SessionID: sessionID}]
	if !ok {
		return nil, false
	}

	return s.events, true
}

// ActiveUploads 用户当前活跃上传数.
func (a *Admission) ActiveUploads(userID uint) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.active[userID]
}

// GC 摘除终态超过宽限期的会话，防止进度通道无限堆积.
func (a *Admission) GC(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0

	for key, s := range a.sessions {
		if s.closed && now.Sub(s.doneAt) > a.grace {
			delete(a.sessions, key)

			removed++
		}
	}

	return removed
}

// emit 非阻塞推送，满了丢弃.
func emit(s *uploadSession, ev types.ProgressEvent) {
	select {
	case s.events <- ev:
	default:
	}
}
