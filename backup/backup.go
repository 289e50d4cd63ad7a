// Package backup 负责会话级留底与恢复。
//
// 布局约定：<base>/<sessionID>/<项目内相对路径>，sessionID 为毫秒精度
// 时间戳标识。同一会话内每个文件至多留底一次；恢复按会话整体或按
// 路径子集把快照拷回原位。保留策略按天数清理旧会话，但永远保留
// 最近的 N 个
package backup

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"fkpatch/utils"
)

// DefaultDirName 项目根下的默认备份目录名
const DefaultDirName = ".diff_backups"

// BackupError 表示留底失败。写入方收到该错误后必须放弃对应文件的
// 应用，绝不在无底可退的情况下写盘
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// Manager 单个会话的留底器
type Manager struct {
	fs      afero.Fs
	base    string // 备份根目录
	session string

	mu   sync.Mutex
	done map[string]struct{} // 本会话已留底的相对路径
}

// NewManager 创建会话留底器；目录按需创建
func NewManager(fsys afero.Fs, base, sessionID string) *Manager {
	return &Manager{
		fs:      fsys,
		base:    base,
		session: sessionID,
		done:    make(map[string]struct{}),
	}
}

// Dir 返回本会话的备份目录
func (m *Manager) Dir() string {
	return path.Join(m.base, m.session)
}

// Count 返回本会话已留底的文件数
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.done)
}

// Snapshot 留底一个文件的当前内容；同一路径重复调用幂等
func (m *Manager) Snapshot(rel string, data []byte) error {
	m.mu.Lock()
	if _, ok := m.done[rel]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	dst := path.Join(m.Dir(), rel)
	if dir := path.Dir(dst); dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return &BackupError{Path: rel, Err: err}
		}
	}
	if err := afero.WriteFile(m.fs, dst, data, 0o644); err != nil {
		return &BackupError{Path: rel, Err: err}
	}

	m.mu.Lock()
	m.done[rel] = struct{}{}
	m.mu.Unlock()
	return nil
}

// SessionInfo 一个历史备份会话的概要
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	FileCount int       `json:"file_count"`
	TotalSize int64     `json:"total_size"`
}

// ListSessions 枚举备份根目录下的会话，按时间倒序（最新在前）。
// 不符合会话标识格式的目录跳过
func ListSessions(fsys afero.Fs, base string) ([]SessionInfo, error) {
	entries, err := afero.ReadDir(fsys, base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backup sessions: %w", err)
	}

	var sessions []SessionInfo
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		ts, err := utils.ParseSessionID(ent.Name())
		if err != nil {
			continue
		}
		info := SessionInfo{ID: ent.Name(), StartedAt: ts}
		_ = afero.Walk(fsys, path.Join(base, ent.Name()), func(p string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			info.FileCount++
			info.TotalSize += fi.Size()
			return nil
		})
		sessions = append(sessions, info)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}
