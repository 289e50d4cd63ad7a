package backup

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// RestoreOptions 恢复参数
type RestoreOptions struct {
	DryRun bool     // 只报告将要恢复的文件，不写盘
	Paths  []string // 为空恢复整个会话，否则只恢复列出的相对路径
}

// RestoredFile 一个（将要）恢复的文件
type RestoredFile struct {
	Rel  string
	Size int64
}

// Restore 把会话快照拷回 destRoot 下的原始相对位置。
// 会话不存在、或指定的路径在快照中缺失，都是错误
func Restore(fsys afero.Fs, base, sessionID, destRoot string, opts RestoreOptions) ([]RestoredFile, error) {
	snapDir := path.Join(base, sessionID)
	if ok, err := afero.DirExists(fsys, snapDir); err != nil || !ok {
		return nil, fmt.Errorf("backup session %s not found under %s", sessionID, base)
	}

	want := make(map[string]struct{}, len(opts.Paths))
	for _, p := range opts.Paths {
		want[strings.TrimPrefix(path.Clean(p), "./")] = struct{}{}
	}

	var files []RestoredFile
	err := afero.Walk(fsys, snapDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, snapDir), "/")
		if len(want) > 0 {
			if _, ok := want[rel]; !ok {
				return nil
			}
			delete(want, rel)
		}
		files = append(files, RestoredFile{Rel: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan backup session %s: %w", sessionID, err)
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for p := range want {
			missing = append(missing, p)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("paths not present in session %s: %s", sessionID, strings.Join(missing, ", "))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })

	if opts.DryRun {
		return files, nil
	}

	for _, f := range files {
		src := path.Join(snapDir, f.Rel)
		dst := path.Join(destRoot, f.Rel)
		data, err := afero.ReadFile(fsys, src)
		if err != nil {
			return files, fmt.Errorf("read snapshot %s: %w", src, err)
		}
		if dir := path.Dir(dst); dir != "." {
			if err := fsys.MkdirAll(dir, 0o755); err != nil {
				return files, fmt.Errorf("restore %s: %w", f.Rel, err)
			}
		}
		if err := afero.WriteFile(fsys, dst, data, 0o644); err != nil {
			return files, fmt.Errorf("restore %s: %w", f.Rel, err)
		}
	}
	return files, nil
}

// Prune 清理超过 keepDays 天的会话，但永远保留最近的 keepMin 个。
// keepDays <= 0 表示关闭清理。返回被删除的会话标识
func Prune(fsys afero.Fs, base string, keepDays, keepMin int) ([]string, error) {
	if keepDays <= 0 {
		return nil, nil
	}
	if keepMin < 1 {
		keepMin = 1
	}

	sessions, err := ListSessions(fsys, base)
	if err != nil {
		return nil, err
	}
	if len(sessions) <= keepMin {
		return nil, nil
	}

	cutoff := time.Now().AddDate(0, 0, -keepDays)
	var removed []string
	// sessions 已按新到旧排序；跳过受保护的前 keepMin 个
	for _, s := range sessions[keepMin:] {
		if s.StartedAt.After(cutoff) {
			continue
		}
		if err := fsys.RemoveAll(path.Join(base, s.ID)); err != nil {
			return removed, fmt.Errorf("prune session %s: %w", s.ID, err)
		}
		removed = append(removed, s.ID)
	}
	return removed, nil
}
