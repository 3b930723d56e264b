// Package backend 封装远端存储账号的统一访问接口.
// 每个用户挂载若干个 S3 兼容账号，文件字节按首次适配策略散落其间；
// 本包提供单账号客户端抽象与按实时余量选择账号的池.
package backend

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrInvalidSize 分配请求缺失或非正的字节数.
	ErrInvalidSize = errors.New("backend: required size must be positive")
	// ErrNoCapacity 所有可达账号都放不下本次写入.
	ErrNoCapacity = errors.New("backend: no account has enough free space")
)

// Quota 账号配额快照.
type Quota struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
}

// Free 返回剩余可用字节，不为负.
func (q Quota) Free() int64 {
	free := q.Total - q.Used
	if free < 0 {
		return 0
	}

	return free
}

// ObjectInfo 远端对象的元信息.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// Storage 单个远端账号的统一操作界面.
// 所有方法在账号不可达或熔断打开时返回错误，由调用方决定跳过或上报.
type Storage interface {
	// Label 账号的用户可读名称.
	Label() string
	// Quota 实时配额（容量固定，已用量来自远端）.
	Quota(ctx context.Context) (Quota, error)
	// Put 流式写入对象并返回实际写入的字节数；size 为 -1 表示长度未知.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	// Get 打开对象读取流.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Remove 删除对象.
	Remove(ctx context.Context, key string) error
	// SetPublic 打上/摘除公共读标记（对象标签）.
	SetPublic(ctx context.Context, key string, public bool) error
	// Health 连通性检查.
	Health(ctx context.Context) error
	// Close 释放客户端资源.
	Close() error
}
