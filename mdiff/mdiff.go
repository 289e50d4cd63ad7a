// Package mdiff 提供多文件 diff 的计算、解析与格式化。
//
// 核心能力:
//   - Diff: 基于 Myers 算法计算两个文本之间的最小编辑序列
//   - Format: 生成标准 unified diff 格式输出
//   - Parse: 解析 unified diff（含 git 扩展头、旧式 hunk 头修复、
//     二进制补丁段捕获）与 "*** Begin Patch" 括号方言
//   - Extract: 从混有说明文字的文本中提取补丁正文
//
// 补丁的定位与应用不在本包：模糊定位、行偏移折叠与写盘由 patcher 包负责，
// 本包只产出与消费结构化的 diff。
//
// 用法示例:
//
//	// 计算单文件 diff
//	fd := mdiff.DiffFiles("old.go", oldContent, "new.go", newContent, 3)
//	patch := mdiff.FormatFileDiff(fd)
//
//	// 解析补丁文本（自动识别方言）
//	mfd, err := mdiff.ParsePatchText(patchText)
//
//	// 统计
//	fmt.Println(mdiff.Stat(mfd))
package mdiff

import "strings"

// FileChange 描述一个文件的变更（用于批量 diff）
type FileChange struct {
	Path       string // 文件路径
	OldContent string // 旧内容（空字符串=新文件）
	NewContent string // 新内容（空字符串=删除文件）
}

// DiffFiles 计算两个文件版本之间的 diff
// contextLines 为上下文行数，0 表示默认值(3)
func DiffFiles(oldName, oldContent, newName, newContent string, contextLines int) *FileDiff {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	return UnifiedDiff(oldName, newName, oldLines, newLines, contextLines)
}

// DiffMultiFiles 批量计算多个文件的 diff
func DiffMultiFiles(changes []FileChange, contextLines int) *MultiFileDiff {
	mfd := &MultiFileDiff{}
	for _, c := range changes {
		oldName := c.Path
		newName := c.Path
		fd := DiffFiles(oldName, c.OldContent, newName, c.NewContent, contextLines)
		if fd == nil || len(fd.Hunks) == 0 {
			continue
		}
		if c.OldContent == "" {
			fd.IsNew = true
		}
		if c.NewContent == "" {
			fd.IsDelete = true
		}
		mfd.Files = append(mfd.Files, *fd)
	}
	return mfd
}

// splitLines 将文本按行切分（去掉一个末尾换行符，保持与 diff 行语义一致）
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}
