package mdiff

import "fmt"

// ParseError 表示补丁文本无法解析，对整个补丁是致命错误
type ParseError struct {
	Line int // 出错行号（从1开始），0 表示与具体行无关
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("parse error: %s", e.Msg)
}

func parseErrorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
