package patcher

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"fkpatch/gitinfo"
	"fkpatch/utils"
)

// FileStatus 文件级结果
type FileStatus string

const (
	StatusApplied FileStatus = "applied" // 全部 hunk 应用成功
	StatusPartial FileStatus = "partial" // 部分应用、部分跳过
	StatusSkipped FileStatus = "skipped" // 未发生任何写入
	StatusFailed  FileStatus = "failed"  // 出错，文件保持原样
)

// HunkState hunk 级结果
type HunkState string

const (
	HunkApplied HunkState = "applied"
	HunkSkipped HunkState = "skipped"
	HunkFailed  HunkState = "failed"
)

// 决策来源标识
const (
	SourceAuto   = "auto"   // 唯一高置信候选自动采信
	SourceAssist = "assist" // 外部建议服务
	SourceUser   = "user"   // 交互式选择
)

// HunkDecision 单个 hunk 的处理记录
type HunkDecision struct {
	Index      int       `json:"index"` // 文件内 hunk 序号（从1开始）
	State      HunkState `json:"state"`
	Source     string    `json:"source,omitempty"`     // auto | assist | user
	Position   int       `json:"position,omitempty"`   // 选中落点（1 起始行号），0 表示无
	Confidence float64   `json:"confidence,omitempty"` // 选中候选的相似度
	Candidates int       `json:"candidates,omitempty"` // 歧义时的候选数
	Note       string    `json:"note,omitempty"`
	Err        string    `json:"error,omitempty"`
}

// FileResult 单个文件的处理记录
type FileResult struct {
	Path     string         `json:"path"` // 项目内相对路径；未解析成功时为补丁内原始路径
	Status   FileStatus     `json:"status"`
	Language string         `json:"language,omitempty"`
	Binary   bool           `json:"binary,omitempty"`
	Hunks    []HunkDecision `json:"hunks,omitempty"`
	Err      string         `json:"error,omitempty"`
}

// Totals 会话级聚合计数
type Totals struct {
	Files        int `json:"files"`
	FilesApplied int `json:"files_applied"`
	FilesPartial int `json:"files_partial"`
	FilesSkipped int `json:"files_skipped"`
	FilesFailed  int `json:"files_failed"`
	HunksApplied int `json:"hunks_applied"`
	HunksSkipped int `json:"hunks_skipped"`
	HunksFailed  int `json:"hunks_failed"`
}

// Session 一次应用调用，持有插入有序的文件结果
type Session struct {
	ID        string
	Root      string
	DryRun    bool
	Threshold float64
	StartedAt time.Time
	Git       gitinfo.Info

	results *orderedmap.OrderedMap[string, *FileResult]
}

// NewSession 创建会话，标识取当前时间（毫秒精度）
func NewSession(root string, dryRun bool, threshold float64) *Session {
	now := time.Now()
	return &Session{
		ID:        utils.SessionID(now),
		Root:      root,
		DryRun:    dryRun,
		Threshold: threshold,
		StartedAt: now,
		results:   orderedmap.New[string, *FileResult](),
	}
}

// Record 记录一个文件结果，保持首次插入的次序
func (s *Session) Record(fr *FileResult) {
	s.results.Set(fr.Path, fr)
}

// Result 固化会话为可序列化的快照
func (s *Session) Result() *SessionResult {
	res := &SessionResult{
		ID:         s.ID,
		Root:       s.Root,
		DryRun:     s.DryRun,
		Threshold:  s.Threshold,
		StartedAt:  s.StartedAt,
		FinishedAt: time.Now(),
		Git:        s.Git,
	}
	for pair := s.results.Oldest(); pair != nil; pair = pair.Next() {
		fr := pair.Value
		res.Files = append(res.Files, *fr)
		res.Totals.Files++
		switch fr.Status {
		case StatusApplied:
			res.Totals.FilesApplied++
		case StatusPartial:
			res.Totals.FilesPartial++
		case StatusSkipped:
			res.Totals.FilesSkipped++
		case StatusFailed:
			res.Totals.FilesFailed++
		}
		for _, h := range fr.Hunks {
			switch h.State {
			case HunkApplied:
				res.Totals.HunksApplied++
			case HunkSkipped:
				res.Totals.HunksSkipped++
			case HunkFailed:
				res.Totals.HunksFailed++
			}
		}
	}
	return res
}

// SessionResult 会话的最终快照，报告层直接序列化
type SessionResult struct {
	ID         string       `json:"session_id"`
	Root       string       `json:"root"`
	DryRun     bool         `json:"dry_run"`
	Threshold  float64      `json:"threshold"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Git        gitinfo.Info `json:"git"`
	Totals     Totals       `json:"totals"`
	Files      []FileResult `json:"files"`
}

// Success 判断会话是否完全成功（每个文件都达到 applied）
func (r *SessionResult) Success() bool {
	return r.Totals.Files > 0 && r.Totals.FilesApplied == r.Totals.Files
}

// ProgressFunc 进度回调：每处理完一个文件调用一次
type ProgressFunc func(done, total int, path string)
