package mdiff

import (
	"fmt"
	"strings"
)

// defaultContextLines 默认上下文行数
const defaultContextLines = 3

// UnifiedDiff 计算两个文件版本之间的 unified diff
// contextLines 指定每个 hunk 前后保留的上下文行数，0 表示使用默认值(3)
func UnifiedDiff(oldName, newName string, oldLines, newLines []string, contextLines int) *FileDiff {
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}

	edits := Diff(oldLines, newLines)

	hasChanges := false
	for _, e := range edits {
		if e.Kind != OpEqual {
			hasChanges = true
			break
		}
	}
	if !hasChanges {
		return &FileDiff{
			OldName: oldName,
			NewName: newName,
		}
	}

	return &FileDiff{
		OldName: oldName,
		NewName: newName,
		Hunks:   buildHunks(edits, contextLines),
	}
}

// buildHunks 从编辑序列中构建 hunk 列表
func buildHunks(edits []Edit, contextLines int) []Hunk {
	n := len(edits)
	if n == 0 {
		return nil
	}

	// 标记每个 edit 是否需要包含在输出中，并向前后扩展上下文
	include := make([]bool, n)
	for i, e := range edits {
		if e.Kind != OpEqual {
			include[i] = true
			for j := i - 1; j >= 0 && j >= i-contextLines; j-- {
				include[j] = true
			}
			for j := i + 1; j < n && j <= i+contextLines; j++ {
				include[j] = true
			}
		}
	}

	// 将连续的 include 区域分组为 hunk
	var hunks []Hunk
	i := 0
	for i < n {
		if !include[i] {
			i++
			continue
		}

		start := i
		for i < n && include[i] {
			i++
		}

		var lines []DiffLine
		oldCount := 0
		newCount := 0
		hunkOldStart := -1
		hunkNewStart := -1

		for idx := start; idx < i; idx++ {
			e := edits[idx]
			switch e.Kind {
			case OpEqual:
				if hunkOldStart == -1 {
					hunkOldStart = e.OldPos
				}
				if hunkNewStart == -1 {
					hunkNewStart = e.NewPos
				}
				lines = append(lines, DiffLine{Kind: OpEqual, Text: e.Text})
				oldCount++
				newCount++
			case OpDelete:
				if hunkOldStart == -1 {
					hunkOldStart = e.OldPos
				}
				lines = append(lines, DiffLine{Kind: OpDelete, Text: e.Text})
				oldCount++
			case OpInsert:
				if hunkNewStart == -1 {
					hunkNewStart = e.NewPos
				}
				lines = append(lines, DiffLine{Kind: OpInsert, Text: e.Text})
				newCount++
			}
		}

		// 如果起始行号没设置（全是插入/删除），从相邻 edit 推导
		if hunkOldStart == -1 {
			if start > 0 && (edits[start-1].Kind == OpEqual || edits[start-1].Kind == OpDelete) {
				hunkOldStart = edits[start-1].OldPos + 1
			} else {
				hunkOldStart = 0
			}
		}
		if hunkNewStart == -1 {
			if start > 0 && (edits[start-1].Kind == OpEqual || edits[start-1].Kind == OpInsert) {
				hunkNewStart = edits[start-1].NewPos + 1
			} else {
				hunkNewStart = 0
			}
		}

		// 转为 1-based；当行数为 0 时（新建/删除文件），起始行号应为 0
		hunkOldStartFinal := hunkOldStart + 1
		hunkNewStartFinal := hunkNewStart + 1
		if oldCount == 0 {
			hunkOldStartFinal = 0
		}
		if newCount == 0 {
			hunkNewStartFinal = 0
		}

		hunks = append(hunks, Hunk{
			OldStart: hunkOldStartFinal,
			OldLines: oldCount,
			NewStart: hunkNewStartFinal,
			NewLines: newCount,
			Lines:    lines,
		})
	}

	return hunks
}

// FormatFileDiff 将单个文件 diff 格式化为 unified diff 字符串
func FormatFileDiff(fd *FileDiff) string {
	if fd == nil || len(fd.Hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("--- %s\n", formatFileName(fd.OldName, fd.IsNew)))
	sb.WriteString(fmt.Sprintf("+++ %s\n", formatFileName(fd.NewName, fd.IsDelete)))

	for i := range fd.Hunks {
		formatHunk(&sb, &fd.Hunks[i])
	}

	return sb.String()
}

// FormatHunk 将单个 hunk 格式化为 unified diff 片段（用于报告与交互展示）
func FormatHunk(h *Hunk) string {
	var sb strings.Builder
	formatHunk(&sb, h)
	return sb.String()
}

func formatHunk(sb *strings.Builder, h *Hunk) {
	sb.WriteString(fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldLines, h.NewStart, h.NewLines))
	for i, line := range h.Lines {
		switch line.Kind {
		case OpEqual:
			sb.WriteString(" " + line.Text + "\n")
		case OpDelete:
			sb.WriteString("-" + line.Text + "\n")
		case OpInsert:
			sb.WriteString("+" + line.Text + "\n")
		}
		if i == len(h.Lines)-1 && (h.NoNewlineOld || h.NoNewlineNew) {
			sb.WriteString("\\ No newline at end of file\n")
		}
	}
}

// FormatMultiFileDiff 将多文件 diff 格式化为 unified diff 字符串
func FormatMultiFileDiff(mfd *MultiFileDiff) string {
	if mfd == nil || len(mfd.Files) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := range mfd.Files {
		sb.WriteString(FormatFileDiff(&mfd.Files[i]))
	}

	return sb.String()
}

// formatFileName 格式化文件名，新建/删除侧输出 /dev/null
func formatFileName(name string, null bool) string {
	if null || name == "" {
		return "/dev/null"
	}
	return name
}
