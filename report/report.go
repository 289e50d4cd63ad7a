// Package report 生成会话报告：JSON、纯文本、Markdown 与 HTML 四种
// 工件写入 <root>/reports/results/<会话ID>/，供终端展示、导出与
// 内置浏览页读取。单个工件写入失败只记警告，不影响其余工件
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fkpatch/logging"
	"fkpatch/patcher"
	"fkpatch/utils"
)

// DirName 报告根目录（相对项目根）
const DirName = "reports/results"

// 工件文件名
const (
	fileJSON = "apply-report.json"
	fileText = "apply-report.txt"
	fileMD   = "apply-report.md"
	fileHTML = "apply-report.html"
)

// SessionDir 某会话的报告目录（相对项目根）
func SessionDir(id string) string {
	return path.Join(DirName, id)
}

// Write 写出全部报告工件，返回会话报告目录。
// fsys 以项目根为基准；目录创建失败是唯一的硬错误
func Write(fsys afero.Fs, res *patcher.SessionResult) (string, error) {
	dir := SessionDir(res.ID)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	md := RenderMarkdown(res)
	artifacts := []struct {
		name string
		data func() ([]byte, error)
	}{
		{fileJSON, func() ([]byte, error) { return json.MarshalIndent(res, "", "  ") }},
		{fileText, func() ([]byte, error) { return []byte(RenderText(res)), nil }},
		{fileMD, func() ([]byte, error) { return []byte(md), nil }},
		{fileHTML, func() ([]byte, error) { return ConvertMarkdownToHTML([]byte(md)), nil }},
	}
	for _, a := range artifacts {
		data, err := a.data()
		if err == nil {
			err = afero.WriteFile(fsys, path.Join(dir, a.name), data, 0o644)
		}
		if err != nil {
			logging.L().Warn("report artifact not written",
				zap.String("artifact", a.name), zap.Error(err))
		}
	}
	return dir, nil
}

// Load 读回某会话的 JSON 报告
func Load(fsys afero.Fs, id string) (*patcher.SessionResult, error) {
	data, err := afero.ReadFile(fsys, path.Join(SessionDir(id), fileJSON))
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	var res patcher.SessionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	return &res, nil
}

// LoadMarkdown 读回某会话的 Markdown 报告（终端渲染用）
func LoadMarkdown(fsys afero.Fs, id string) (string, error) {
	data, err := afero.ReadFile(fsys, path.Join(SessionDir(id), fileMD))
	if err != nil {
		return "", fmt.Errorf("load report %s: %w", id, err)
	}
	return string(data), nil
}

// Entry 会话列表项
type Entry struct {
	ID         string    `json:"session_id"`
	StartedAt  time.Time `json:"started_at"`
	DryRun     bool      `json:"dry_run"`
	Files      int       `json:"files"`
	Applied    int       `json:"files_applied"`
	Failed     int       `json:"files_failed"`
	Success    bool      `json:"success"`
	HTMLReport string    `json:"html_report"`
}

// ListSessions 枚举已有报告，新会话在前。报告根不存在视为空列表
func ListSessions(fsys afero.Fs) ([]Entry, error) {
	infos, err := afero.ReadDir(fsys, DirName)
	if err != nil {
		if exists, _ := afero.DirExists(fsys, DirName); !exists {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if _, err := utils.ParseSessionID(info.Name()); err != nil {
			continue
		}
		res, err := Load(fsys, info.Name())
		if err != nil {
			logging.L().Warn("unreadable session report", zap.String("session", info.Name()), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{
			ID:         res.ID,
			StartedAt:  res.StartedAt,
			DryRun:     res.DryRun,
			Files:      res.Totals.Files,
			Applied:    res.Totals.FilesApplied,
			Failed:     res.Totals.FilesFailed,
			Success:    res.Success(),
			HTMLReport: path.Join(SessionDir(res.ID), fileHTML),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries, nil
}

// ============================================================
// 文本渲染
// ============================================================

// RenderText 人读摘要：会话头、逐文件结果、合计尾
func RenderText(res *patcher.SessionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "session %s\n", res.ID)
	fmt.Fprintf(&sb, "root: %s\n", res.Root)
	if res.DryRun {
		sb.WriteString("mode: dry-run (no files written)\n")
	}
	if res.Git.IsRepo {
		fmt.Fprintf(&sb, "git: %s@%s dirty=%v\n", res.Git.Branch, res.Git.Commit, res.Git.Dirty)
	}
	fmt.Fprintf(&sb, "threshold: %.2f\n\n", res.Threshold)

	for _, f := range res.Files {
		applied := 0
		for _, h := range f.Hunks {
			if h.State == patcher.HunkApplied {
				applied++
			}
		}
		switch f.Status {
		case patcher.StatusApplied:
			fmt.Fprintf(&sb, "✓ %s applied %d/%d\n", f.Path, applied, len(f.Hunks))
		case patcher.StatusPartial:
			fmt.Fprintf(&sb, "~ %s partial %d/%d\n", f.Path, applied, len(f.Hunks))
		case patcher.StatusSkipped:
			fmt.Fprintf(&sb, "- %s skipped: %s\n", f.Path, f.Err)
		default:
			fmt.Fprintf(&sb, "✗ %s failed: %s\n", f.Path, f.Err)
		}
		for _, h := range f.Hunks {
			if h.State == patcher.HunkApplied {
				continue
			}
			note := h.Note
			if h.Err != "" {
				note = h.Err
			}
			fmt.Fprintf(&sb, "    hunk #%d %s: %s\n", h.Index, h.State, note)
		}
	}

	t := res.Totals
	fmt.Fprintf(&sb, "\nfiles: %d applied, %d partial, %d skipped, %d failed\n",
		t.FilesApplied, t.FilesPartial, t.FilesSkipped, t.FilesFailed)
	fmt.Fprintf(&sb, "hunks: %d applied, %d skipped, %d failed\n",
		t.HunksApplied, t.HunksSkipped, t.HunksFailed)
	fmt.Fprintf(&sb, "elapsed: %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return sb.String()
}

// RenderMarkdown 结果的 Markdown 表格视图
func RenderMarkdown(res *patcher.SessionResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# 补丁会话 %s\n\n", res.ID)
	fmt.Fprintf(&sb, "- 项目根: `%s`\n", res.Root)
	fmt.Fprintf(&sb, "- 开始时间: %s\n", res.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "- 相似度阈值: %.2f\n", res.Threshold)
	if res.DryRun {
		sb.WriteString("- 演练模式：未写入任何文件\n")
	}
	if res.Git.IsRepo {
		fmt.Fprintf(&sb, "- Git: `%s@%s` dirty=%v\n", res.Git.Branch, res.Git.Commit, res.Git.Dirty)
	}

	sb.WriteString("\n## 文件结果\n\n")
	sb.WriteString("| 文件 | 状态 | 语言 | hunk |\n|---|---|---|---|\n")
	for _, f := range res.Files {
		applied := 0
		for _, h := range f.Hunks {
			if h.State == patcher.HunkApplied {
				applied++
			}
		}
		lang := f.Language
		if f.Binary {
			lang = "binary"
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %d/%d |\n",
			f.Path, f.Status, lang, applied, len(f.Hunks))
	}

	sb.WriteString("\n## Hunk 决策\n\n")
	sb.WriteString("| 文件 | # | 状态 | 来源 | 行号 | 相似度 | 备注 |\n|---|---|---|---|---|---|---|\n")
	for _, f := range res.Files {
		for _, h := range f.Hunks {
			note := h.Note
			if h.Err != "" {
				note = h.Err
			}
			fmt.Fprintf(&sb, "| `%s` | %d | %s | %s | %d | %.2f | %s |\n",
				f.Path, h.Index, h.State, h.Source, h.Position, h.Confidence, note)
		}
	}

	t := res.Totals
	fmt.Fprintf(&sb, "\n## 合计\n\n文件 %d（成功 %d / 部分 %d / 跳过 %d / 失败 %d），hunk 成功 %d / 跳过 %d / 失败 %d\n",
		t.Files, t.FilesApplied, t.FilesPartial, t.FilesSkipped, t.FilesFailed,
		t.HunksApplied, t.HunksSkipped, t.HunksFailed)
	return sb.String()
}

// ConvertMarkdownToHTML Markdown 报告转 HTML
func ConvertMarkdownToHTML(md []byte) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(md)

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)

	return markdown.Render(doc, renderer)
}

// ============================================================
// Excel 导出
// ============================================================

// ExportExcel 每个 hunk 决策一行，写出审计表
func ExportExcel(res *patcher.SessionResult, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	headers := []string{"会话", "文件", "状态", "hunk", "hunk状态", "来源", "行号", "相似度", "候选数", "备注"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, fr := range res.Files {
		hunks := fr.Hunks
		if len(hunks) == 0 {
			hunks = []patcher.HunkDecision{{}}
		}
		for _, h := range hunks {
			note := h.Note
			if h.Err != "" {
				note = h.Err
			}
			values := []interface{}{
				res.ID, fr.Path, string(fr.Status),
				h.Index, string(h.State), h.Source,
				h.Position, h.Confidence, h.Candidates, note,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
			row++
		}
	}
	return f.Write(w)
}
