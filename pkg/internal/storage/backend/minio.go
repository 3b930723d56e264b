package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
	"github.com/sony/gobreaker"

	"github.com/omnivault/omnivault/pkg/configs"
	olog "github.com/omnivault/omnivault/pkg/log"
	"github.com/omnivault/omnivault/pkg/internal/model"
)

const publicTagKey = "public"

// minioStorage 基于 MinIO 客户端的 Storage 实现，远端调用走账号级熔断器.
type minioStorage struct {
	account model.BackendAccount
	total   int64
	cli     *minio.Client
	cb      *gobreaker.CircuitBreaker
}

// NewMinioStorage 初始化一个账号的 MinIO 客户端，桶不存在则创建.
func NewMinioStorage(ctx context.Context, account model.BackendAccount) (Storage, error) {
	cfg := configs.GetConfig()

	endpoint := account.Endpoint
	useSSL := account.UseSSL
	// 允许传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(account.AccessKeyID, account.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Backends.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %q: %w", account.Label, err)
	}

	cli.SetAppInfo("omnivault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, account.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s on %q: %w", account.Bucket, account.Label, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, account.Bucket, minio.MakeBucketOptions{Region: cfg.Backends.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s on %q: %w", account.Bucket, account.Label, err)
		}

		olog.Logger().Info().Str("bucket", account.Bucket).Str("account", account.Label).Msg("bucket created")
	}

	total := account.Capacity
	if total <= 0 {
		total = cfg.Backends.AccountCapacity
	}

	s := &minioStorage{
		account: account,
		total:   total,
		cli:     cli,
	}

	if cfg.Breaker.Enabled {
		s.cb = newAccountBreaker(account.Label, cfg.Breaker)
	}

	return s, nil
}

// newAccountBreaker 为账号构建熔断器.
func newAccountBreaker(label string, cfg configs.CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        "backend-" + label,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)

			return failureRate >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			olog.Logger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("backend breaker state change")
		},
	}

	return gobreaker.NewCircuitBreaker(settings)
}

// exec 在熔断器内执行远端调用；熔断关闭时直通.
func (m *minioStorage) exec(fn func() (any, error)) (any, error) {
	if m.cb == nil {
		return fn()
	}

	return m.cb.Execute(fn)
}

func (m *minioStorage) Label() string {
	return m.account.Label
}

// Quota 容量为账号固定值，已用量由遍历对象累加得出.
func (m *minioStorage) Quota(ctx context.Context) (Quota, error) {
	used, err := m.exec(func() (any, error) {
		var sum int64

		for obj := range m.cli.ListObjects(ctx, m.account.Bucket, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				return nil, obj.Err
			}

			sum += obj.Size
		}

		return sum, nil
	})
	if err != nil {
		return Quota{}, fmt.Errorf("quota of %q: %w", m.account.Label, err)
	}

	return Quota{Total: m.total, Used: used.(int64)}, nil
}

func (m *minioStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	res, err := m.exec(func() (any, error) {
		return m.cli.PutObject(ctx, m.account.Bucket, key, r, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("put %s to %q: %w", key, m.account.Label, err)
	}

	info, ok := res.(minio.UploadInfo)
	if !ok {
		return size, nil
	}

	return info.Size, nil
}

func (m *minioStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	res, err := m.exec(func() (any, error) {
		obj, err := m.cli.GetObject(ctx, m.account.Bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}

		// GetObject 懒连接，Stat 强制校验对象存在
		stat, err := obj.Stat()
		if err != nil {
			_ = obj.Close()
			return nil, err
		}

		return struct {
			obj  *minio.Object
			stat minio.ObjectInfo
		}{obj, stat}, nil
	})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get %s from %q: %w", key, m.account.Label, err)
	}

	pair := res.(struct {
		obj  *minio.Object
		stat minio.ObjectInfo
	})

	info := ObjectInfo{
		Size:         pair.stat.Size,
		ContentType:  pair.stat.ContentType,
		ETag:         pair.stat.ETag,
		LastModified: pair.stat.LastModified,
	}

	return pair.obj, info, nil
}

func (m *minioStorage) Remove(ctx context.Context, key string) error {
	_, err := m.exec(func() (any, error) {
		return nil, m.cli.RemoveObject(ctx, m.account.Bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		return fmt.Errorf("remove %s from %q: %w", key, m.account.Label, err)
	}

	return nil
}

// SetPublic 用对象标签记录公共读标记，下载路径据此放行.
func (m *minioStorage) SetPublic(ctx context.Context, key string, public bool) error {
	_, err := m.exec(func() (any, error) {
		if !public {
			return nil, m.cli.RemoveObjectTagging(ctx, m.account.Bucket, key, minio.RemoveObjectTaggingOptions{})
		}

		t, err := tags.NewTags(map[string]string{publicTagKey: "true"}, false)
		if err != nil {
			return nil, err
		}

		return nil, m.cli.PutObjectTagging(ctx, m.account.Bucket, key, t, minio.PutObjectTaggingOptions{})
	})
	if err != nil {
		return fmt.Errorf("tag %s on %q: %w", key, m.account.Label, err)
	}

	return nil
}

func (m *minioStorage) Health(ctx context.Context) error {
	_, err := m.exec(func() (any, error) {
		_, err := m.cli.BucketExists(ctx, m.account.Bucket)
		return nil, err
	})

	return err
}

// Close 关闭客户端（minio 客户端无显式关闭，接口兼容）.
func (m *minioStorage) Close() error {
	return nil
}
