package patcher

import (
	"context"

	"fkpatch/mdiff"
)

// Action 决策源给出的处理动作
type Action int

const (
	// ActionNone 无可用答案，按协议落为跳过或失败
	ActionNone Action = iota
	// ActionPick 选中某个候选或手工指定的位置
	ActionPick
	// ActionSkipHunk 跳过当前 hunk
	ActionSkipHunk
	// ActionSkipFile 跳过当前文件剩余的全部 hunk
	ActionSkipFile
	// ActionAbort 中止整个会话（剩余文件记为跳过）
	ActionAbort
)

// Resolution 一次 hunk 级决策的结果
type Resolution struct {
	Action     Action
	Index      int     // ActionPick：候选下标；-1 表示用 Position 手工定位
	Position   int     // 手工定位的 0 起始行偏移（Index < 0 时生效）
	Confidence float64 // 决策源给出的置信度（交互选择为候选相似度）
	Source     string  // SourceAuto | SourceAssist | SourceUser
	Note       string  // 自由文本说明（建议服务的理由、manual position 等）
}

// FileQuery 文件级歧义：一个补丁路径对应零个或多个项目文件
type FileQuery struct {
	Name        string   // 补丁中的原始路径
	Candidates  []string // 候选相对路径（Ambiguous 时非空）
	Suggestions []string // NotFound 时的近似建议
}

// HunkQuery hunk 级歧义：零个或多个可用候选
type HunkQuery struct {
	Path       string // 已解析的相对路径
	Index      int    // 文件内 hunk 序号（从1开始）
	Hunk       *mdiff.Hunk
	Recorded   int // 折叠修正后的期望位置（0 起始），-1 表示未知
	FileLines  []string
	Candidates []Candidate // 已排序；可能为空（NoCandidate）
	Reason     string      // 进入协议的原因描述

	// Preselect 前序决策源（建议服务）的推荐下标，缺省 0 即最优候选；
	// 交互源以此作为默认选项，但用户选择始终优先
	Preselect     int
	PreselectNote string

	// Fragment 建议服务在无可用候选时返回的可手工粘贴 diff 片段；
	// 只展示给用户，引擎不会自动应用
	Fragment string
}

// Decider 冲突解决协议的决策端。
// 引擎在无法自动得出唯一答案时同步调用；实现方可以是
// 自动采信、外部建议服务、交互提示或三者的链
type Decider interface {
	// DecideFile 在候选路径中选一个；ok=false 表示跳过该文件
	DecideFile(ctx context.Context, q *FileQuery) (path string, ok bool, err error)
	// DecideHunk 给出 hunk 级决策；ActionNone 按非交互策略处置
	DecideHunk(ctx context.Context, q *HunkQuery) (Resolution, error)
}
