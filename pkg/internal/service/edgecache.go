package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/omnivault/omnivault/pkg/configs"
	"github.com/omnivault/omnivault/pkg/internal/model"
	nlog "github.com/omnivault/omnivault/pkg/log"
)

// edgeCopyPath 缓存文件按 id 落在固定目录下，扩展名保留便于排查.
func edgeCopyPath(dir string, f *model.File) string {
	name := fmt.Sprintf("%d", f.ID)
	if f.Extension != "" {
		name += "." + f.Extension
	}

	return filepath.Join(dir, name)
}

// maybeMaterialize 在透传远端流的同时落一份本地副本.
// 超预算、超单条上限或缓存关闭时原样返回远端流；副本写失败只影响缓存不影响下载.
func (fs *FileService) maybeMaterialize(ctx context.Context, f *model.File, rc io.ReadCloser) io.ReadCloser {
	cfg := configs.GetConfig().Cache
	if !cfg.Enabled || f.Size > cfg.MaxEntry {
		return rc
	}

	used, err := dirSize(cfg.Dir)
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("dir", cfg.Dir).Msg("edge cache dir unreadable, skip materialize")

		return rc
	}

	if used+f.Size > cfg.Budget {
		return rc
	}

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		nlog.Logger().Warn().Err(err).Str("dir", cfg.Dir).Msg("failed to create edge cache dir")

		return rc
	}

	tmp, err := os.CreateTemp(cfg.Dir, ".partial-*")
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("failed to create edge cache temp file")

		return rc
	}

	final := edgeCopyPath(cfg.Dir, f)

	return &teeCloser{
		rc:  rc,
		tmp: tmp,
		commit: func(written int64) {
			if written != f.Size {
				// 流被提前断开，副本不完整，丢弃
				_ = os.Remove(tmp.Name())

				return
			}

			if err := os.Rename(tmp.Name(), final); err != nil {
				nlog.Logger().Warn().Err(err).Str("path", final).Msg("failed to commit edge cache copy")
				_ = os.Remove(tmp.Name())

				return
			}

			now := time.Now()
			if err := fs.dbClient.WithContext(ctx).Model(&model.File{}).
				Where("id = ?", f.ID).
				Updates(map[string]any{"cached_path": final, "cached_at": now}).Error; err != nil {
				nlog.Logger().Warn().Err(err).Uint("file", f.ID).Msg("failed to record edge cache pointer")
			}
		},
	}
}

// teeCloser 边读边写副本，Close 时决定提交还是丢弃.
type teeCloser struct {
	rc      io.ReadCloser
	tmp     *os.File
	written int64
	failed  bool
	commit  func(written int64)
}

func (t *teeCloser) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	if n > 0 && !t.failed {
		if _, werr := t.tmp.Write(p[:n]); werr != nil {
			// 副本写不动了，降级为纯透传
			t.failed = true
		} else {
			t.written += int64(n)
		}
	}

	return n, err
}

func (t *teeCloser) Close() error {
	err := t.rc.Close()

	_ = t.tmp.Close()

	if t.failed {
		_ = os.Remove(t.tmp.Name())
	} else {
		t.commit(t.written)
	}

	return err
}

// SweepEdgeCache 定期清扫：先清过期条目，再按最旧优先裁到预算以内.
// 只动本地副本和指针，远端对象不受影响.
func (fs *FileService) SweepEdgeCache(ctx context.Context) error {
	cfg := configs.GetConfig().Cache
	cutoff := time.Now().Add(-cfg.TTL())

	var cached []model.File
	if err := fs.dbClient.WithContext(ctx).
		Where("cached_path <> ''").
		Order("cached_at ASC").
		Find(&cached).Error; err != nil {
		return err
	}

	var (
		kept      []model.File
		totalSize int64
	)

	for i := range cached {
		f := &cached[i]

		if f.CachedAt == nil || f.CachedAt.Before(cutoff) {
			fs.evictEdgeCopy(ctx, f)

			continue
		}

		st, err := os.Stat(f.CachedPath)
		if err != nil {
			// 副本已不在磁盘上，清掉指针
			fs.evictEdgeCopy(ctx, f)

			continue
		}

		totalSize += st.Size()

		kept = append(kept, *f)
	}

	// kept 已按 cached_at 升序，超预算时从最旧开始逐个驱逐
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CachedAt.Before(*kept[j].CachedAt)
	})

	for i := range kept {
		if totalSize <= cfg.Budget {
			break
		}

		f := &kept[i]

		if st, err := os.Stat(f.CachedPath); err == nil {
			totalSize -= st.Size()
		}

		fs.evictEdgeCopy(ctx, f)
	}

	return nil
}

// evictEdgeCopy 删副本文件并清元数据指针.
func (fs *FileService) evictEdgeCopy(ctx context.Context, f *model.File) {
	fs.dropEdgeCopy(f)

	if err := fs.dbClient.WithContext(ctx).Model(&model.File{}).
		Where("id = ?", f.ID).
		Updates(map[string]any{"cached_path": "", "cached_at": nil}).Error; err != nil {
		nlog.Logger().Warn().Err(err).Uint("file", f.ID).Msg("failed to clear edge cache pointer")
	}
}

// dirSize 目录下常规文件的总字节数，目录不存在按 0 计.
func dirSize(dir string) (int64, error) {
	var total int64

	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}

			total += info.Size()
		}

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, err
	}

	return total, nil
}
