package utils

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// DetectEOL 探测文本的主导行尾风格，按首次出现的 \r\n、\n、\r 判定，默认 \n
func DetectEOL(text string) string {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				return "\r\n"
			}
			return "\r"
		case '\n':
			return "\n"
		}
	}
	return "\n"
}

// HasTrailingNewline 判断文本是否以换行结尾（任一风格）
func HasTrailingNewline(text string) bool {
	if text == "" {
		return false
	}
	last := text[len(text)-1]
	return last == '\n' || last == '\r'
}

// SplitLines 去掉行尾符后按行切分，空文本返回空切片
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")
	if normalized == "" {
		return []string{""}
	}
	return strings.Split(normalized, "\n")
}

// JoinLines 以指定 EOL 拼接行，withFinal 控制是否补末尾换行
func JoinLines(lines []string, eol string, withFinal bool) string {
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, line := range lines {
		sb.WriteString(line)
		if i < len(lines)-1 || withFinal {
			sb.WriteString(eol)
		}
	}
	return sb.String()
}

// Excerpt 截取最多 max 字节的摘要，按 rune 边界截断并追加省略号
func Excerpt(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// TermWidth 当前终端宽度，取不到时返回 80
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// TruncateForWidth 按显示宽度截断（中文等宽字符按 2 列计算）
func TruncateForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
