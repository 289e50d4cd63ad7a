package utils

import (
	"testing"
	"time"
)

// ============================================================
// EOL 探测测试
// ============================================================

func TestDetectEOLUnix(t *testing.T) {
	if eol := DetectEOL("a\nb\n"); eol != "\n" {
		t.Errorf("expected \\n, got %q", eol)
	}
}

func TestDetectEOLWindows(t *testing.T) {
	if eol := DetectEOL("a\r\nb\r\n"); eol != "\r\n" {
		t.Errorf("expected \\r\\n, got %q", eol)
	}
}

func TestDetectEOLMac(t *testing.T) {
	if eol := DetectEOL("a\rb\r"); eol != "\r" {
		t.Errorf("expected \\r, got %q", eol)
	}
}

func TestDetectEOLEmpty(t *testing.T) {
	if eol := DetectEOL(""); eol != "\n" {
		t.Errorf("expected default \\n, got %q", eol)
	}
}

func TestDetectEOLFirstWins(t *testing.T) {
	if eol := DetectEOL("a\r\nb\nc\n"); eol != "\r\n" {
		t.Errorf("expected \\r\\n (first occurrence), got %q", eol)
	}
}

// ============================================================
// 行切分与拼接测试
// ============================================================

func TestSplitLinesBasic(t *testing.T) {
	lines := SplitLines("a\nb\nc\n")
	if len(lines) != 3 || lines[0] != "a" || lines[2] != "c" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestSplitLinesNoTrailing(t *testing.T) {
	lines := SplitLines("a\nb")
	if len(lines) != 2 || lines[1] != "b" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestSplitLinesCRLF(t *testing.T) {
	lines := SplitLines("a\r\nb\r\n")
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestSplitLinesEmpty(t *testing.T) {
	if lines := SplitLines(""); lines != nil {
		t.Errorf("expected nil, got %v", lines)
	}
}

func TestJoinLinesRoundTrip(t *testing.T) {
	text := "a\r\nb\r\nc\r\n"
	lines := SplitLines(text)
	got := JoinLines(lines, "\r\n", true)
	if got != text {
		t.Errorf("round trip failed: %q != %q", got, text)
	}
}

func TestJoinLinesNoFinal(t *testing.T) {
	got := JoinLines([]string{"a", "b"}, "\n", false)
	if got != "a\nb" {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestHasTrailingNewline(t *testing.T) {
	if !HasTrailingNewline("a\n") {
		t.Error("expected true for trailing \\n")
	}
	if HasTrailingNewline("a") {
		t.Error("expected false without trailing newline")
	}
	if HasTrailingNewline("") {
		t.Error("expected false for empty text")
	}
}

// ============================================================
// 摘要截断测试
// ============================================================

func TestExcerptShort(t *testing.T) {
	if got := Excerpt("hello", 400); got != "hello" {
		t.Errorf("unexpected excerpt: %q", got)
	}
}

func TestExcerptTruncates(t *testing.T) {
	got := Excerpt("hello world", 5)
	if got != "hello..." {
		t.Errorf("unexpected excerpt: %q", got)
	}
}

func TestExcerptRuneBoundary(t *testing.T) {
	// "你" 占 3 字节，截断点落在多字节字符中间时应回退
	got := Excerpt("你好世界", 4)
	if got != "你..." {
		t.Errorf("unexpected excerpt: %q", got)
	}
}

// ============================================================
// 会话标识测试
// ============================================================

func TestSessionIDFormat(t *testing.T) {
	ts := time.Date(2026, 8, 22, 15, 30, 45, 123*1e6, time.Local)
	id := SessionID(ts)
	if id != "20260822-153045-123" {
		t.Errorf("unexpected session id: %s", id)
	}
}

func TestParseSessionIDRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 22, 15, 30, 45, 7*1e6, time.Local)
	id := SessionID(ts)
	parsed, err := ParseSessionID(id)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("round trip mismatch: %v != %v", parsed, ts)
	}
}

func TestParseSessionIDInvalid(t *testing.T) {
	for _, id := range []string{"", "abc", "20260822", "20260822-153045-12x", "20269999-153045-123"} {
		if _, err := ParseSessionID(id); err == nil {
			t.Errorf("expected error for %q", id)
		}
	}
}

// ============================================================
// 路径展示测试
// ============================================================

func TestDisplayPathRelative(t *testing.T) {
	got := DisplayPath("/work/project/src/main.go", "/work/project")
	if got != "src/main.go" {
		t.Errorf("unexpected display path: %s", got)
	}
}

func TestDisplayPathOutsideRoot(t *testing.T) {
	got := DisplayPath("/other/file.go", "/work/project")
	if got != "/other/file.go" {
		t.Errorf("unexpected display path: %s", got)
	}
}
