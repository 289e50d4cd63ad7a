// Package resolve 实现冲突解决协议：当路径或 hunk 无法自动得出唯一
// 答案时，按优先级依次咨询决策源（自动采信 → 外部建议 → 交互提示），
// 任一源给出可用答案即终止。用户的显式选择永远不会被自动/建议结果
// 覆盖；所有源都给不出答案时按非交互策略落为跳过或失败
package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fkpatch/assist"
	"fkpatch/logging"
	"fkpatch/mdiff"
	"fkpatch/patcher"
	"fkpatch/utils"
)

// Policy 所有决策源都无答案时的处置
type Policy string

const (
	// PolicySkip 跳过该 hunk/文件（默认）
	PolicySkip Policy = "skip"
	// PolicyFail 记为失败
	PolicyFail Policy = "fail"
)

// Source 单个决策源。ok=false 表示无答案，交给下一个源
type Source interface {
	Name() string
	Resolve(ctx context.Context, q *patcher.HunkQuery) (r patcher.Resolution, ok bool, err error)
}

// FileSource 文件级决策源（路径歧义）
type FileSource interface {
	ResolveFile(ctx context.Context, q *patcher.FileQuery) (path string, ok bool)
}

// Resolver 按优先级串联决策源，实现 patcher.Decider
type Resolver struct {
	sources []Source
	files   []FileSource
	policy  Policy
}

// Options 协议装配参数
type Options struct {
	AutoAccept  bool           // 无条件采信最优候选
	Threshold   float64        // 自动采信的分数下限
	Assist      *assist.Client // 为空禁用建议服务
	AssistAuto  bool           // 建议置信度过阈值时直接应用
	Interactive bool           // 挂交互提示源（stdin 为 TTY 时）
	OnConflict  Policy
}

// New 按配置装配协议
func New(opts Options) *Resolver {
	if opts.Threshold <= 0 {
		opts.Threshold = patcher.DefaultThreshold
	}
	r := &Resolver{policy: opts.OnConflict}
	if r.policy == "" {
		r.policy = PolicySkip
	}

	r.sources = append(r.sources, &autoSource{takeBest: opts.AutoAccept, threshold: opts.Threshold})
	if opts.Assist != nil {
		r.sources = append(r.sources, &assistSource{
			client:    opts.Assist,
			autoApply: opts.AssistAuto,
			threshold: opts.Threshold,
		})
	}
	if opts.Interactive {
		in := newInteractiveSource()
		r.sources = append(r.sources, in)
		r.files = append(r.files, in)
	}
	return r
}

// DecideHunk 依次咨询各源；全部无答案时按策略落为跳过或失败
func (r *Resolver) DecideHunk(ctx context.Context, q *patcher.HunkQuery) (patcher.Resolution, error) {
	// 建议源的推荐作为交互源的预选传递
	for _, src := range r.sources {
		res, ok, err := src.Resolve(ctx, q)
		if err != nil {
			return patcher.Resolution{}, err
		}
		if ok {
			logging.L().Debug("conflict resolved",
				zap.String("path", q.Path), zap.Int("hunk", q.Index),
				zap.String("source", src.Name()))
			return res, nil
		}
	}

	if r.policy == PolicyFail {
		return patcher.Resolution{}, fmt.Errorf("unresolved conflict in %s hunk #%d: %s", q.Path, q.Index, q.Reason)
	}
	return patcher.Resolution{Action: patcher.ActionSkipHunk, Note: q.Reason}, nil
}

// DecideFile 文件级歧义：只有交互源能答，否则跳过
func (r *Resolver) DecideFile(ctx context.Context, q *patcher.FileQuery) (string, bool, error) {
	if len(q.Candidates) == 0 {
		return "", false, nil
	}
	for _, src := range r.files {
		if path, ok := src.ResolveFile(ctx, q); ok {
			return path, true, nil
		}
	}
	return "", false, nil
}

// ============================================================
// 自动采信源
// ============================================================

type autoSource struct {
	takeBest  bool
	threshold float64
}

func (s *autoSource) Name() string { return "auto" }

// Resolve 唯一过阈值的候选直接采信；takeBest 时放宽为取最优
func (s *autoSource) Resolve(ctx context.Context, q *patcher.HunkQuery) (patcher.Resolution, bool, error) {
	if len(q.Candidates) == 0 {
		return patcher.Resolution{}, false, nil
	}
	best := q.Candidates[0]
	if !s.takeBest {
		// 执行器已把明确无歧义的情况自动处理掉；走到这里的一律放行给后续源
		return patcher.Resolution{}, false, nil
	}
	if best.Score < s.threshold {
		return patcher.Resolution{}, false, nil
	}
	return patcher.Resolution{
		Action:     patcher.ActionPick,
		Index:      0,
		Confidence: best.Score,
		Source:     patcher.SourceAuto,
		Note:       "take-best auto accept",
	}, true, nil
}

// ============================================================
// 建议服务源
// ============================================================

type assistSource struct {
	client    *assist.Client
	autoApply bool
	threshold float64
}

func (s *assistSource) Name() string { return "assist" }

// Resolve 咨询建议服务；仅当 autoApply 且置信度过阈值时直接应用，
// 否则把推荐写进查询供交互源预选后继续放行。无候选时同样咨询：
// 服务可改为返回自由文本建议和 diff 片段，片段只展示从不自动应用
func (s *assistSource) Resolve(ctx context.Context, q *patcher.HunkQuery) (patcher.Resolution, bool, error) {
	sug, err := s.client.Suggest(ctx, buildRequest(q))
	if err != nil {
		// 建议失败从不让 hunk 失败
		logging.L().Debug("assist suggestion unavailable", zap.Error(err))
		return patcher.Resolution{}, false, nil
	}
	if sug.DiffFragment != "" {
		q.Fragment = sug.DiffFragment
	}
	if sug.CandidateIndex < 0 || sug.CandidateIndex >= len(q.Candidates) {
		if sug.Explanation != "" {
			q.PreselectNote = sug.Explanation
		}
		return patcher.Resolution{}, false, nil
	}

	q.Preselect = sug.CandidateIndex
	q.PreselectNote = sug.Explanation

	if s.autoApply && sug.Confidence >= s.threshold {
		return patcher.Resolution{
			Action:     patcher.ActionPick,
			Index:      sug.CandidateIndex,
			Confidence: sug.Confidence,
			Source:     patcher.SourceAssist,
			Note:       sug.Explanation,
		}, true, nil
	}
	return patcher.Resolution{}, false, nil
}

// buildRequest 把 hunk 查询折叠成建议服务的请求载荷
func buildRequest(q *patcher.HunkQuery) *assist.Request {
	req := &assist.Request{
		Path:     q.Path,
		Hunk:     utils.Excerpt(hunkText(q.Hunk), 400),
		Anchors:  patcher.Anchors(q.Hunk.OldBody()),
		Recorded: q.Recorded + 1,
	}
	for _, c := range q.Candidates {
		req.Candidates = append(req.Candidates, assist.CandidateInfo{
			Position: c.Position + 1,
			Score:    c.Score,
			Excerpt:  utils.Excerpt(window(q.FileLines, c.Position, len(q.Hunk.OldBody())), 400),
		})
	}
	return req
}

func hunkText(h *mdiff.Hunk) string {
	var sb strings.Builder
	for _, dl := range h.Lines {
		switch dl.Kind {
		case mdiff.OpInsert:
			sb.WriteByte('+')
		case mdiff.OpDelete:
			sb.WriteByte('-')
		default:
			sb.WriteByte(' ')
		}
		sb.WriteString(dl.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func window(lines []string, pos, n int) string {
	if pos < 0 || pos >= len(lines) {
		return ""
	}
	end := pos + n
	if n <= 0 || end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[pos:end], "\n")
}
