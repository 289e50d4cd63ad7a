package fileindex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutsideRoot 补丁目标路径在项目根之外
var ErrOutsideRoot = errors.New("path escapes the project root")

// ErrorKind 路径解析失败的类别
type ErrorKind string

const (
	// NotFound 项目内找不到目标文件
	NotFound ErrorKind = "not_found"
	// Ambiguous 基名匹配到多个文件且无法消歧
	Ambiguous ErrorKind = "ambiguous"
)

// FileResolutionError 表示补丁路径无法唯一解析到项目内文件。
// 属于文件级错误：记录到报告后会话继续
type FileResolutionError struct {
	Kind        ErrorKind
	Name        string   // 补丁中的原始路径
	Candidates  []string // Ambiguous：排序后的候选相对路径
	Suggestions []string // NotFound：最接近的基名（最多 3 个）
}

func (e *FileResolutionError) Error() string {
	switch e.Kind {
	case Ambiguous:
		shown := e.Candidates
		more := ""
		if len(shown) > 5 {
			more = fmt.Sprintf(" (+%d more)", len(shown)-5)
			shown = shown[:5]
		}
		return fmt.Sprintf("ambiguous path %q: %d candidates: %s%s",
			e.Name, len(e.Candidates), strings.Join(shown, ", "), more)
	default:
		msg := fmt.Sprintf("file %q not found in project root", e.Name)
		if len(e.Suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s)", strings.Join(e.Suggestions, ", "))
		}
		return msg
	}
}
