package resolve

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"fkpatch/mdiff"
	"fkpatch/patcher"
	"fkpatch/utils"
)

// IsTTY 判断标准输入是否为终端（非 TTY 时不挂交互源）
func IsTTY() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// 交互选项中的固定条目
const (
	optSkipHunk  = "跳过这个 hunk"
	optSkipFile  = "跳过整个文件"
	optManualPos = "手工输入行号"
	optAbort     = "中止会话"
)

var (
	styleDel     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleIns     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleCtx     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleLineNum = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

// interactiveSource 阻塞式交互提示：展示候选上下文，由用户选择。
// 引擎视角这是一个同步调用，一次只挂起一个在途 hunk
type interactiveSource struct{}

func newInteractiveSource() *interactiveSource {
	return &interactiveSource{}
}

func (s *interactiveSource) Name() string { return "interactive" }

// Resolve 弹出候选选择；用户的选择为最终决定
func (s *interactiveSource) Resolve(ctx context.Context, q *patcher.HunkQuery) (patcher.Resolution, bool, error) {
	printHunkHeader(q)

	options := make([]string, 0, len(q.Candidates)+4)
	for i, c := range q.Candidates {
		options = append(options, candidateLabel(i, c))
	}
	options = append(options, optManualPos, optSkipHunk, optSkipFile, optAbort)

	defaultOption := options[0]
	if q.Preselect >= 0 && q.Preselect < len(q.Candidates) {
		defaultOption = options[q.Preselect]
		if q.PreselectNote != "" {
			pterm.Info.Printfln("建议服务推荐候选 %d: %s", q.Preselect+1, q.PreselectNote)
		}
	}

	for i, c := range q.Candidates {
		pterm.DefaultSection.Printfln("候选 %d (行 %d, 相似度 %.2f)", i+1, c.Position+1, c.Score)
		fmt.Println(renderCandidate(q, c))
		// 模糊候选的窗口内容和补丁旧文块不同，hunk 本身展示不了
		// 落点处实际会发生的改动，补一份真实差异
		if !c.Exact {
			if p := previewDiff(q, c); p != "" {
				pterm.Println("实际改动:")
				fmt.Println(renderPreview(p))
			}
		}
	}

	if q.Fragment != "" {
		pterm.DefaultSection.Println("建议的替代补丁（仅供参考，不会自动应用）")
		fmt.Println(styleCtx.Render(q.Fragment))
	}

	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultOption(defaultOption).
		Show(fmt.Sprintf("%s hunk #%d: %s，请选择处理方式", q.Path, q.Index, q.Reason))
	if err != nil {
		return patcher.Resolution{}, false, fmt.Errorf("interactive prompt: %w", err)
	}

	switch choice {
	case optSkipHunk:
		return patcher.Resolution{Action: patcher.ActionSkipHunk, Source: patcher.SourceUser, Note: "user skip"}, true, nil
	case optSkipFile:
		return patcher.Resolution{Action: patcher.ActionSkipFile, Source: patcher.SourceUser}, true, nil
	case optAbort:
		return patcher.Resolution{Action: patcher.ActionAbort, Source: patcher.SourceUser}, true, nil
	case optManualPos:
		return s.manualPosition(q)
	}

	for i := range q.Candidates {
		if choice == candidateLabel(i, q.Candidates[i]) {
			return patcher.Resolution{
				Action:     patcher.ActionPick,
				Index:      i,
				Confidence: q.Candidates[i].Score,
				Source:     patcher.SourceUser,
			}, true, nil
		}
	}
	return patcher.Resolution{}, false, nil
}

// manualPosition 读取 1 起始行号强制定位
func (s *interactiveSource) manualPosition(q *patcher.HunkQuery) (patcher.Resolution, bool, error) {
	input, err := pterm.DefaultInteractiveTextInput.
		Show(fmt.Sprintf("输入落点行号 (1-%d)", len(q.FileLines)+1))
	if err != nil {
		return patcher.Resolution{}, false, fmt.Errorf("interactive prompt: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > len(q.FileLines)+1 {
		pterm.Warning.Printfln("无效行号 %q，跳过该 hunk", input)
		return patcher.Resolution{Action: patcher.ActionSkipHunk, Source: patcher.SourceUser, Note: "invalid manual position"}, true, nil
	}
	return patcher.Resolution{
		Action:   patcher.ActionPick,
		Index:    -1,
		Position: n - 1,
		Source:   patcher.SourceUser,
		Note:     "manual position",
	}, true, nil
}

// ResolveFile 路径歧义的交互选择
func (s *interactiveSource) ResolveFile(ctx context.Context, q *patcher.FileQuery) (string, bool) {
	if len(q.Candidates) == 0 {
		if len(q.Suggestions) > 0 {
			pterm.Warning.Printfln("找不到 %s（相近文件: %s）", q.Name, strings.Join(q.Suggestions, ", "))
		}
		return "", false
	}

	const optSkip = "跳过该文件"
	options := append(append([]string(nil), q.Candidates...), optSkip)
	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithMaxHeight(10).
		Show(fmt.Sprintf("路径 %s 匹配到多个文件，请选择", q.Name))
	if err != nil || choice == optSkip {
		return "", false
	}
	return choice, true
}

func printHunkHeader(q *patcher.HunkQuery) {
	pterm.Println()
	pterm.DefaultHeader.Printfln("冲突: %s hunk #%d", utils.TruncateForWidth(q.Path, utils.TermWidth()-20), q.Index)
	if scope := scopeHeader(q.Hunk); scope != "" {
		fmt.Println(styleCtx.Render(scope))
	}
	fmt.Println(renderHunk(q.Hunk))
}

// scopeHeader 括号方言 @@ 标记携带的定位上下文，标准 unified diff 为空
func scopeHeader(h *mdiff.Hunk) string {
	if len(h.ScopeLines) == 0 {
		return ""
	}
	return "作用域: " + strings.Join(h.ScopeLines, " › ")
}

// renderHunk 按变更类型着色展示 hunk 内容
func renderHunk(h *mdiff.Hunk) string {
	var sb strings.Builder
	for _, dl := range h.Lines {
		switch dl.Kind {
		case mdiff.OpDelete:
			sb.WriteString(styleDel.Render("- " + dl.Text))
		case mdiff.OpInsert:
			sb.WriteString(styleIns.Render("+ " + dl.Text))
		default:
			sb.WriteString(styleCtx.Render("  " + dl.Text))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// renderCandidate 展示候选窗口及上下各一行背景
func renderCandidate(q *patcher.HunkQuery, c patcher.Candidate) string {
	n := len(q.Hunk.OldBody())
	start := c.Position - 1
	if start < 0 {
		start = 0
	}
	end := c.Position + n + 1
	if end > len(q.FileLines) {
		end = len(q.FileLines)
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		num := styleLineNum.Render(fmt.Sprintf("%5d │ ", i+1))
		line := q.FileLines[i]
		if i >= c.Position && i < c.Position+n {
			sb.WriteString(num + line)
		} else {
			sb.WriteString(num + styleCtx.Render(line))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// previewDiff 计算候选窗口内容与补丁新文块之间的真实差异，
// 以 unified diff 形式返回；窗口越界或内容无差异时返回空
func previewDiff(q *patcher.HunkQuery, c patcher.Candidate) string {
	n := len(q.Hunk.OldBody())
	end := c.Position + n
	if c.Position < 0 || n == 0 || end > len(q.FileLines) {
		return ""
	}
	fd := mdiff.UnifiedDiff(q.Path, q.Path, q.FileLines[c.Position:end], q.Hunk.NewBody(), 1)
	if len(fd.Hunks) == 0 {
		return ""
	}
	return mdiff.FormatFileDiff(fd)
}

// renderPreview 按行首符号给 diff 文本着色
func renderPreview(diff string) string {
	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "-"):
			sb.WriteString(styleDel.Render(line))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(styleIns.Render(line))
		default:
			sb.WriteString(styleCtx.Render(line))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func candidateLabel(i int, c patcher.Candidate) string {
	kind := "模糊"
	if c.Exact {
		kind = "精确"
	}
	return fmt.Sprintf("候选 %d: 行 %d (%s, %.2f)", i+1, c.Position+1, kind, c.Score)
}
