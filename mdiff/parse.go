package mdiff

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePatchText 解析补丁文本，自动识别 unified diff 与括号方言。
// 解析出的文件数为 0 视为致命错误（ParseError）
func ParsePatchText(text string) (*MultiFileDiff, error) {
	if IsBracketedPatch(text) {
		return ParseBracketedPatch(text)
	}
	mfd, err := ParseMultiFileDiff(text)
	if err != nil {
		return nil, err
	}
	if len(mfd.Files) == 0 {
		return nil, &ParseError{Msg: "no file headers found in patch text"}
	}
	return mfd, nil
}

// ParseMultiFileDiff 解析 unified diff 格式文本，返回多文件 diff 结构。
// 支持 git 扩展头（rename/copy/mode/binary）与缺失新范围的旧式 hunk 头
func ParseMultiFileDiff(text string) (*MultiFileDiff, error) {
	if strings.TrimSpace(text) == "" {
		return &MultiFileDiff{}, nil
	}

	lines := splitPatchLines(text)

	var files []FileDiff
	i := 0
	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "diff --git "):
			fd, next, err := parseGitFileDiff(lines, i)
			if err != nil {
				return nil, err
			}
			files = append(files, *fd)
			i = next
		case isFileHeaderPair(lines, i):
			fd, next, err := parsePlainFileDiff(lines, i)
			if err != nil {
				return nil, err
			}
			files = append(files, *fd)
			i = next
		default:
			i++
		}
	}

	return &MultiFileDiff{Files: files}, nil
}

// ParseFileDiff 解析单个文件的 unified diff
func ParseFileDiff(text string) (*FileDiff, error) {
	mfd, err := ParseMultiFileDiff(text)
	if err != nil {
		return nil, err
	}
	if len(mfd.Files) == 0 {
		return &FileDiff{}, nil
	}
	return &mfd.Files[0], nil
}

// splitPatchLines 按行切分补丁文本并去掉每行末尾的 \r
func splitPatchLines(text string) []string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// isFileHeaderPair 判断 lines[i] 是否为 "--- " 且紧跟 "+++ " 的文件头
func isFileHeaderPair(lines []string, i int) bool {
	return strings.HasPrefix(lines[i], "--- ") &&
		i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ")
}

// parseGitFileDiff 解析以 "diff --git" 开头的一个文件段，返回下一个未消费行号
func parseGitFileDiff(lines []string, start int) (*FileDiff, int, error) {
	oldName, newName := parseGitDiffNames(lines[start])
	fd := &FileDiff{OldName: oldName, NewName: newName}

	i := start + 1
	for i < len(lines) {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "old mode "):
			fd.OldMode = strings.TrimPrefix(line, "old mode ")
			i++
		case strings.HasPrefix(line, "new mode "):
			fd.NewMode = strings.TrimPrefix(line, "new mode ")
			i++
		case strings.HasPrefix(line, "new file mode "):
			fd.IsNew = true
			fd.NewMode = strings.TrimPrefix(line, "new file mode ")
			i++
		case strings.HasPrefix(line, "deleted file mode "):
			fd.IsDelete = true
			fd.OldMode = strings.TrimPrefix(line, "deleted file mode ")
			i++
		case strings.HasPrefix(line, "rename from "):
			fd.RenameFrom = strings.TrimPrefix(line, "rename from ")
			fd.OldName = fd.RenameFrom
			i++
		case strings.HasPrefix(line, "rename to "):
			fd.NewName = strings.TrimPrefix(line, "rename to ")
			i++
		case strings.HasPrefix(line, "copy from "):
			fd.CopyFrom = strings.TrimPrefix(line, "copy from ")
			fd.OldName = fd.CopyFrom
			i++
		case strings.HasPrefix(line, "copy to "):
			fd.NewName = strings.TrimPrefix(line, "copy to ")
			i++
		case strings.HasPrefix(line, "similarity index "),
			strings.HasPrefix(line, "dissimilarity index "),
			strings.HasPrefix(line, "index "):
			i++
		case line == "GIT binary patch":
			next, err := parseBinaryPayload(lines, i+1, fd)
			if err != nil {
				return nil, 0, err
			}
			return fd, next, nil
		case strings.HasPrefix(line, "Binary files "):
			fd.IsBinary = true
			return fd, i + 1, nil
		case isFileHeaderPair(lines, i):
			applyHeaderNames(fd, lines[i], lines[i+1])
			i += 2
			next, err := parseHunks(lines, i, fd)
			if err != nil {
				return nil, 0, err
			}
			return fd, next, nil
		default:
			// 纯模式变更或重命名段，没有内容变更
			return fd, i, nil
		}
	}
	return fd, i, nil
}

// parsePlainFileDiff 解析不带 git 头的 "--- / +++" 文件段
func parsePlainFileDiff(lines []string, start int) (*FileDiff, int, error) {
	fd := &FileDiff{}
	applyHeaderNames(fd, lines[start], lines[start+1])
	next, err := parseHunks(lines, start+2, fd)
	if err != nil {
		return nil, 0, err
	}
	return fd, next, nil
}

// applyHeaderNames 根据 ---/+++ 行更新文件名与新建/删除标记
func applyHeaderNames(fd *FileDiff, oldLine, newLine string) {
	oldName := parseFileName(oldLine, "--- ")
	newName := parseFileName(newLine, "+++ ")
	if oldName == "/dev/null" {
		fd.IsNew = true
	} else {
		fd.OldName = oldName
	}
	if newName == "/dev/null" {
		fd.IsDelete = true
	} else {
		fd.NewName = newName
	}
	if fd.OldName == "" {
		fd.OldName = oldName
	}
	if fd.NewName == "" {
		fd.NewName = newName
	}
}

// parseGitDiffNames 从 "diff --git a/x b/y" 中提取两侧文件名
func parseGitDiffNames(line string) (oldName, newName string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	if idx := strings.Index(rest, " b/"); idx >= 0 {
		return rest[:idx], rest[idx+1:]
	}
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return rest, rest
}

// parseFileName 从 "--- filename" 或 "+++ filename" 中提取文件名。
// 去掉制表符分隔的时间戳，保留 a/ b/ 前缀（由路径解析层统一剥离）
func parseFileName(line, prefix string) string {
	name := strings.TrimPrefix(line, prefix)
	if idx := strings.Index(name, "\t"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "\"") {
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
	}
	return name
}

// parseBinaryPayload 读取 "GIT binary patch" 的正向段，跳过反向段
func parseBinaryPayload(lines []string, i int, fd *FileDiff) (int, error) {
	fd.IsBinary = true
	if i >= len(lines) || !isBinarySectionHeader(lines[i]) {
		return 0, parseErrorf(i+1, "malformed binary patch: missing literal/delta header")
	}

	payload := []string{lines[i]}
	i++
	for i < len(lines) && lines[i] != "" && !strings.HasPrefix(lines[i], "diff --git ") {
		payload = append(payload, lines[i])
		i++
	}
	fd.BinaryPayload = payload

	// 跳过空行与可选的反向段
	for i < len(lines) && lines[i] == "" {
		i++
	}
	if i < len(lines) && isBinarySectionHeader(lines[i]) {
		i++
		for i < len(lines) && lines[i] != "" {
			i++
		}
	}
	return i, nil
}

func isBinarySectionHeader(line string) bool {
	return strings.HasPrefix(line, "literal ") || strings.HasPrefix(line, "delta ")
}

// parseHunks 解析从 i 开始的连续 hunk 块，返回下一个未消费行号
func parseHunks(lines []string, i int, fd *FileDiff) (int, error) {
	for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
		hunk, next, warnings, err := parseHunk(lines, i)
		if err != nil {
			return 0, err
		}
		fd.Hunks = append(fd.Hunks, *hunk)
		fd.Warnings = append(fd.Warnings, warnings...)
		i = next
	}
	return i, nil
}

// parseHunk 解析一个 hunk 块，返回下一个未消费行号与修复性警告
func parseHunk(lines []string, start int) (*Hunk, int, []string, error) {
	header := lines[start]

	oldStart, oldCount, newStart, newCount, legacy, err := parseHunkHeader(header)
	if err != nil {
		return nil, 0, nil, parseErrorf(start+1, "invalid hunk header %q: %v", header, err)
	}

	hunk := &Hunk{
		OldStart: oldStart,
		OldLines: oldCount,
		NewStart: newStart,
		NewLines: newCount,
	}

	i := start + 1
	oldRem := oldCount
	newRem := newCount
	var prevKind OpKind
	prevSet := false

	for i < len(lines) {
		line := lines[i]

		if len(line) == 0 {
			// 空行视为上下文行（仅在还有剩余空间时）
			if oldRem > 0 && (legacy || newRem > 0) {
				hunk.Lines = append(hunk.Lines, DiffLine{Kind: OpEqual})
				oldRem--
				newRem--
				prevKind, prevSet = OpEqual, true
				i++
				continue
			}
			break
		}

		if !legacy && oldRem <= 0 && newRem <= 0 && line[0] != '\\' {
			break
		}

		switch line[0] {
		case ' ':
			if oldRem <= 0 {
				goto done
			}
			hunk.Lines = append(hunk.Lines, DiffLine{Kind: OpEqual, Text: line[1:]})
			oldRem--
			newRem--
			prevKind, prevSet = OpEqual, true
		case '-':
			if oldRem <= 0 {
				goto done
			}
			hunk.Lines = append(hunk.Lines, DiffLine{Kind: OpDelete, Text: line[1:]})
			oldRem--
			prevKind, prevSet = OpDelete, true
		case '+':
			if newRem <= 0 && !legacy {
				goto done
			}
			hunk.Lines = append(hunk.Lines, DiffLine{Kind: OpInsert, Text: line[1:]})
			newRem--
			prevKind, prevSet = OpInsert, true
		case '\\':
			// "\ No newline at end of file"，按前一行归属记录标记
			if prevSet {
				switch prevKind {
				case OpDelete:
					hunk.NoNewlineOld = true
				case OpInsert:
					hunk.NoNewlineNew = true
				default:
					hunk.NoNewlineOld = true
					hunk.NoNewlineNew = true
				}
			}
		default:
			goto done
		}
		i++

		if legacy && oldRem <= 0 {
			// 旧式头只声明了旧范围，旧行耗尽后仅继续吞并新增行
			if i >= len(lines) || len(lines[i]) == 0 || (lines[i][0] != '+' && lines[i][0] != '\\') {
				break
			}
		}
	}

done:
	warnings := recountHunk(hunk, header, start+1, legacy)
	return hunk, i, warnings, nil
}

// recountHunk 用实际行数校正 hunk 头声明，返回修复性警告
func recountHunk(hunk *Hunk, header string, headerLine int, legacy bool) []string {
	actualOld := 0
	actualNew := 0
	for _, dl := range hunk.Lines {
		switch dl.Kind {
		case OpEqual:
			actualOld++
			actualNew++
		case OpDelete:
			actualOld++
		case OpInsert:
			actualNew++
		}
	}

	var warnings []string
	if legacy {
		hunk.NewStart = hunk.OldStart
		hunk.OldLines = actualOld
		hunk.NewLines = actualNew
		warnings = append(warnings,
			fmt.Sprintf("line %d: repaired legacy hunk header %q", headerLine, header))
		return warnings
	}

	if hunk.OldLines != actualOld || hunk.NewLines != actualNew {
		warnings = append(warnings,
			fmt.Sprintf("line %d: hunk header %q declared -%d/+%d lines, body has -%d/+%d; counts corrected",
				headerLine, header, hunk.OldLines, hunk.NewLines, actualOld, actualNew))
		hunk.OldLines = actualOld
		hunk.NewLines = actualNew
	}
	return warnings
}

// parseHunkHeader 解析 "@@ -oldStart,oldLines +newStart,newLines @@"。
// 旧式头可能缺少 +newStart,newLines 部分，此时 legacy 为 true
func parseHunkHeader(header string) (oldStart, oldLines, newStart, newLines int, legacy bool, err error) {
	body := strings.TrimPrefix(header, "@@")
	if idx := strings.Index(body, "@@"); idx >= 0 {
		body = body[:idx]
	}
	body = strings.TrimSpace(body)

	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "-") {
		return 0, 0, 0, 0, false, fmt.Errorf("missing old range")
	}

	oldStart, oldLines, err = parseRange(strings.TrimPrefix(fields[0], "-"))
	if err != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid old range: %w", err)
	}

	if len(fields) == 1 || !strings.HasPrefix(fields[1], "+") {
		// 旧式头：新范围缺失，先镜像旧范围，解析完 body 后按实际行数修复
		return oldStart, oldLines, oldStart, oldLines, true, nil
	}

	newStart, newLines, err = parseRange(strings.TrimPrefix(fields[1], "+"))
	if err != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid new range: %w", err)
	}

	return oldStart, oldLines, newStart, newLines, false, nil
}

// parseRange 解析 "start,count" 或 "start" 格式
func parseRange(s string) (start, count int, err error) {
	parts := strings.SplitN(s, ",", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start: %w", err)
	}
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid count: %w", err)
		}
	} else {
		count = 1
	}
	return start, count, nil
}
