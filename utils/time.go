package utils

import (
	"fmt"
	"time"
)

const sessionIDLayout = "20060102-150405"

// SessionID 生成毫秒精度的会话标识，例如 20260822-153045-123
func SessionID(t time.Time) string {
	return fmt.Sprintf("%s-%03d", t.Format(sessionIDLayout), t.Nanosecond()/1e6)
}

// ParseSessionID 解析会话标识为本地时间，格式不符返回错误
func ParseSessionID(id string) (time.Time, error) {
	if len(id) < len(sessionIDLayout) {
		return time.Time{}, fmt.Errorf("invalid session id: %q", id)
	}
	base, err := time.ParseInLocation(sessionIDLayout, id[:len(sessionIDLayout)], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid session id: %q", id)
	}
	rest := id[len(sessionIDLayout):]
	if rest == "" {
		return base, nil
	}
	if len(rest) != 4 || rest[0] != '-' {
		return time.Time{}, fmt.Errorf("invalid session id: %q", id)
	}
	ms := 0
	for _, c := range rest[1:] {
		if c < '0' || c > '9' {
			return time.Time{}, fmt.Errorf("invalid session id: %q", id)
		}
		ms = ms*10 + int(c-'0')
	}
	return base.Add(time.Duration(ms) * time.Millisecond), nil
}
