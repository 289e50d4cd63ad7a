package mdiff

import "strings"

// ExtractPatchText 从混有说明文字的文本中提取补丁正文。
// 识别第一个补丁起始行（diff --git、---/+++ 对、Index: 或 *** Begin Patch），
// 括号方言截取到 *** End Patch 为止，找不到起始行返回 ParseError
func ExtractPatchText(text string) (string, error) {
	lines := strings.Split(text, "\n")

	start := -1
	bracket := false
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		switch {
		case strings.TrimSpace(line) == bracketBegin:
			start, bracket = i, true
		case strings.HasPrefix(line, "diff --git "):
			start = i
		case strings.HasPrefix(line, "Index: "):
			start = i
		case strings.HasPrefix(line, "--- ") && hasPlusHeaderNearby(lines, i):
			start = i
		}
		if start >= 0 {
			break
		}
	}

	if start < 0 {
		return "", &ParseError{Msg: "no patch content found in text"}
	}

	end := len(lines)
	if bracket {
		for i := start + 1; i < len(lines); i++ {
			if strings.TrimSpace(strings.TrimSuffix(lines[i], "\r")) == bracketEnd {
				end = i + 1
				break
			}
		}
	}

	return strings.Join(lines[start:end], "\n"), nil
}

// hasPlusHeaderNearby 校验 "--- " 行附近存在配对的 "+++ " 行，
// 避免把说明文字中的分隔线误认为补丁头
func hasPlusHeaderNearby(lines []string, i int) bool {
	for j := i + 1; j < len(lines) && j <= i+2; j++ {
		if strings.HasPrefix(strings.TrimSuffix(lines[j], "\r"), "+++ ") {
			return true
		}
	}
	return false
}
