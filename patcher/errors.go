package patcher

import "fmt"

// MatchErrorKind 定位失败的类别
type MatchErrorKind string

const (
	// NoCandidate 整个文件都找不到达到阈值的位置
	NoCandidate MatchErrorKind = "no_candidate"
	// LowConfidence 有相似位置但最高分低于阈值
	LowConfidence MatchErrorKind = "low_confidence"
)

// MatchError 表示 hunk 在目标文件中无法定位。
// 属于 hunk 级错误：先交给冲突解决协议，未解决才落为失败
type MatchError struct {
	Kind MatchErrorKind
	Best float64 // 扫描期间见过的最高相似度
}

func (e *MatchError) Error() string {
	if e.Kind == LowConfidence {
		return fmt.Sprintf("no candidate above threshold (best score %.3f)", e.Best)
	}
	return "no matching location found in file"
}

// ApplyErrorKind 应用失败的类别
type ApplyErrorKind string

const (
	// ConflictUnresolved hunk 冲突未被任何决策源解决
	ConflictUnresolved ApplyErrorKind = "conflict_unresolved"
	// WriteFailure 文件写入或内容校验失败
	WriteFailure ApplyErrorKind = "write_failure"
)

// ApplyError 表示文件应用阶段失败。
// 只中止当前文件，会话继续处理后续文件
type ApplyError struct {
	Kind ApplyErrorKind
	Path string
	Msg  string
	Err  error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apply %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("apply %s: %s", e.Path, e.Msg)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
