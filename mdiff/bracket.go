package mdiff

import "strings"

// 括号方言标记（codex apply_patch 系写法）
const (
	bracketBegin  = "*** Begin Patch"
	bracketEnd    = "*** End Patch"
	bracketAdd    = "*** Add File: "
	bracketUpdate = "*** Update File: "
	bracketDelete = "*** Delete File: "
	bracketMove   = "*** Move to: "
	bracketEOF    = "*** End of File"
)

// IsBracketedPatch 判断文本是否为括号方言补丁
func IsBracketedPatch(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(strings.TrimSuffix(line, "\r")) == bracketBegin {
			return true
		}
	}
	return false
}

// ParseBracketedPatch 解析括号方言补丁。
// 方言不携带行号，hunk 的 OldStart 为 0，由定位层按内容匹配；
// "@@ 标记" 行作为 hunk 的定位上下文记录在 ScopeLines 中
func ParseBracketedPatch(text string) (*MultiFileDiff, error) {
	lines := splitPatchLines(text)

	begin := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == bracketBegin {
			begin = i
			break
		}
	}
	if begin < 0 {
		return nil, &ParseError{Msg: "missing *** Begin Patch marker"}
	}

	mfd := &MultiFileDiff{}
	i := begin + 1
	ended := false

	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == bracketEnd:
			ended = true
			i = len(lines)
		case strings.HasPrefix(line, bracketAdd):
			fd, next, err := parseBracketAdd(lines, i)
			if err != nil {
				return nil, err
			}
			mfd.Files = append(mfd.Files, *fd)
			i = next
		case strings.HasPrefix(line, bracketUpdate):
			fd, next, err := parseBracketUpdate(lines, i)
			if err != nil {
				return nil, err
			}
			mfd.Files = append(mfd.Files, *fd)
			i = next
		case strings.HasPrefix(line, bracketDelete):
			name := strings.TrimSpace(strings.TrimPrefix(line, bracketDelete))
			if name == "" {
				return nil, parseErrorf(i+1, "empty file name in delete directive")
			}
			mfd.Files = append(mfd.Files, FileDiff{
				OldName:  name,
				NewName:  name,
				IsDelete: true,
			})
			i++
		case strings.TrimSpace(line) == "":
			i++
		default:
			return nil, parseErrorf(i+1, "unexpected line in bracketed patch: %q", line)
		}
	}

	if !ended {
		return nil, &ParseError{Msg: "missing *** End Patch marker"}
	}
	if len(mfd.Files) == 0 {
		return nil, &ParseError{Msg: "bracketed patch contains no files"}
	}
	return mfd, nil
}

// parseBracketAdd 解析 Add File 段：后续的 + 行构成新文件内容
func parseBracketAdd(lines []string, start int) (*FileDiff, int, error) {
	name := strings.TrimSpace(strings.TrimPrefix(lines[start], bracketAdd))
	if name == "" {
		return nil, 0, parseErrorf(start+1, "empty file name in add directive")
	}

	fd := &FileDiff{
		OldName: "/dev/null",
		NewName: name,
		IsNew:   true,
	}

	hunk := Hunk{NewStart: 1}
	i := start + 1
	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line, "+") {
			hunk.Lines = append(hunk.Lines, DiffLine{Kind: OpInsert, Text: line[1:]})
			hunk.NewLines++
			i++
			continue
		}
		if strings.HasPrefix(line, "*** ") || strings.TrimSpace(line) == bracketEnd {
			break
		}
		return nil, 0, parseErrorf(i+1, "add file section expects + lines, got %q", line)
	}

	if len(hunk.Lines) > 0 {
		fd.Hunks = append(fd.Hunks, hunk)
	}
	return fd, i, nil
}

// parseBracketUpdate 解析 Update File 段：@@ 分隔多个按内容定位的 hunk
func parseBracketUpdate(lines []string, start int) (*FileDiff, int, error) {
	name := strings.TrimSpace(strings.TrimPrefix(lines[start], bracketUpdate))
	if name == "" {
		return nil, 0, parseErrorf(start+1, "empty file name in update directive")
	}

	fd := &FileDiff{OldName: name, NewName: name}

	i := start + 1
	if i < len(lines) && strings.HasPrefix(lines[i], bracketMove) {
		dest := strings.TrimSpace(strings.TrimPrefix(lines[i], bracketMove))
		if dest == "" {
			return nil, 0, parseErrorf(i+1, "empty destination in move directive")
		}
		if dest != name {
			fd.NewName = dest
			fd.RenameFrom = name
		}
		i++
	}

	var cur *Hunk
	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			recountBracketHunk(cur)
			fd.Hunks = append(fd.Hunks, *cur)
		}
		cur = nil
	}

	for i < len(lines) {
		line := lines[i]

		if strings.TrimSpace(line) == bracketEnd || strings.HasPrefix(line, bracketAdd) ||
			strings.HasPrefix(line, bracketUpdate) || strings.HasPrefix(line, bracketDelete) {
			break
		}
		if strings.TrimSpace(line) == bracketEOF {
			i++
			continue
		}

		if line == "@@" {
			flush()
			cur = &Hunk{}
			i++
			continue
		}
		if strings.HasPrefix(line, "@@ ") {
			scope := strings.TrimSpace(strings.TrimPrefix(line, "@@ "))
			if cur == nil || len(cur.Lines) > 0 {
				flush()
				cur = &Hunk{}
			}
			cur.ScopeLines = append(cur.ScopeLines, scope)
			i++
			continue
		}

		if cur == nil {
			cur = &Hunk{}
		}

		switch {
		case line == "":
			cur.Lines = append(cur.Lines, DiffLine{Kind: OpEqual})
		case line[0] == ' ':
			cur.Lines = append(cur.Lines, DiffLine{Kind: OpEqual, Text: line[1:]})
		case line[0] == '-':
			cur.Lines = append(cur.Lines, DiffLine{Kind: OpDelete, Text: line[1:]})
		case line[0] == '+':
			cur.Lines = append(cur.Lines, DiffLine{Kind: OpInsert, Text: line[1:]})
		default:
			return nil, 0, parseErrorf(i+1, "unexpected line in update section: %q", line)
		}
		i++
	}
	flush()

	if len(fd.Hunks) == 0 && fd.RenameFrom == "" {
		return nil, 0, parseErrorf(start+1, "update section for %s contains no hunks", name)
	}
	return fd, i, nil
}

// recountBracketHunk 补齐方言 hunk 的行数信息；OldStart 置 0 表示按内容定位
func recountBracketHunk(h *Hunk) {
	for _, dl := range h.Lines {
		switch dl.Kind {
		case OpEqual:
			h.OldLines++
			h.NewLines++
		case OpDelete:
			h.OldLines++
		case OpInsert:
			h.NewLines++
		}
	}
}
