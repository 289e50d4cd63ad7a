// Package patcher 实现容忍漂移的补丁定位与应用引擎。
//
// 流程：对每个文件 diff，先通过 fileindex 解析目标路径，再对每个 hunk
// 在当前文件内容中定位（精确优先，其次相似度滑窗），歧义交给决策源，
// 最后按行号升序折叠应用并一次性写盘。备份、行尾保留、干运行与
// 取消语义都在执行层处理
package patcher

import (
	"regexp"
	"sort"
	"strings"
)

// 匹配参数默认值
const (
	DefaultThreshold      = 0.85
	DefaultTieMargin      = 0.05
	DefaultMaxOffsetDrift = 200
	anchorBonus           = 0.05
)

// Candidate 一个候选定位：目标文件中的行偏移与相似度
type Candidate struct {
	Position int     `json:"position"` // 0 起始的行偏移
	Score    float64 `json:"score"`    // [0,1]，精确匹配恒为 1.0
	Exact    bool    `json:"exact"`
}

// TieBreaker 在同分候选之间决定先后次序（原地稳定重排）
type TieBreaker func(recorded int, cands []Candidate)

// NearestToRecorded 默认平局策略：离补丁记录行号最近者优先；
// 无记录行号时退化为文件中靠前者优先
func NearestToRecorded(recorded int, cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		if recorded < 0 {
			return cands[i].Position < cands[j].Position
		}
		return absInt(cands[i].Position-recorded) < absInt(cands[j].Position-recorded)
	})
}

// FirstInFile 备选平局策略：文件中靠前者优先
func FirstInFile(recorded int, cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Position < cands[j].Position
	})
}

// TieBreakerByName 按配置键选择平局策略，未知值回落到 nearest
func TieBreakerByName(name string) TieBreaker {
	switch name {
	case "first":
		return FirstInFile
	default:
		return NearestToRecorded
	}
}

// Config 匹配与执行参数，随构造显式传入，不读全局状态
type Config struct {
	Threshold      float64 // 相似度接受阈值
	TieMargin      float64 // 与次优分差小于该值视为歧义
	MaxOffsetDrift int     // 记录行号附近精确扫描的半径（行）
	UseAnchors     bool    // 结构锚点加分与平局裁决
	TieBreak       TieBreaker
}

// DefaultConfig 返回缺省匹配参数
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		TieMargin:      DefaultTieMargin,
		MaxOffsetDrift: DefaultMaxOffsetDrift,
		UseAnchors:     true,
		TieBreak:       NearestToRecorded,
	}
}

func (c Config) normalized() Config {
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = DefaultThreshold
	}
	if c.TieMargin <= 0 {
		c.TieMargin = DefaultTieMargin
	}
	if c.MaxOffsetDrift <= 0 {
		c.MaxOffsetDrift = DefaultMaxOffsetDrift
	}
	if c.TieBreak == nil {
		c.TieBreak = NearestToRecorded
	}
	return c
}

// normLine 比较前的归一化：去掉行尾空白
func normLine(s string) string {
	return strings.TrimRight(s, " \t")
}

// looseLine 宽松归一化：行内连续空白折叠为单个空格（仅相似度阶段使用）
func looseLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = normLine(l)
	}
	return out
}

func looseLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = looseLine(l)
	}
	return out
}

// Similarity 计算两段行序列的相似度，difflib 风格的 2*M/T 比值。
// 输入已归一化；空对空为 1，一空一非空为 0
func Similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	m := matchingLines(a, b)
	return 2 * float64(m) / float64(total)
}

// quickRatio 相似度上界：按行内容多重集求交，开销 O(n)
func quickRatio(a, b []string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	counts := make(map[string]int, len(a))
	for _, l := range a {
		counts[l]++
	}
	m := 0
	for _, l := range b {
		if counts[l] > 0 {
			counts[l]--
			m++
		}
	}
	return 2 * float64(m) / float64(total)
}

// matchingLines 递归取最长公共块统计总匹配行数（SequenceMatcher 的骨架）
func matchingLines(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingLines(a[:ai], b[:bi]) +
		matchingLines(a[ai+size:], b[bi+size:])
}

// longestBlock 找 a 与 b 的最长公共连续块
func longestBlock(a, b []string) (ai, bi, size int) {
	// b 中每个行内容出现的位置
	where := make(map[string][]int, len(b))
	for i, l := range b {
		where[l] = append(where[l], i)
	}

	// lengths[j] = 以 a[i-1]/b[j-1] 结尾的公共块长度（滚动）
	lengths := make(map[int]int)
	for i, l := range a {
		next := make(map[int]int)
		for _, j := range where[l] {
			n := lengths[j-1] + 1
			next[j] = n
			if n > size {
				ai, bi, size = i-n+1, j-n+1, n
			}
		}
		lengths = next
	}
	return ai, bi, size
}

// anchorPattern 识别结构锚点行：声明类语句开头
var anchorPattern = regexp.MustCompile(`^(func |type |class |def |struct |impl |interface )`)

// Anchors 返回旧文块中的结构锚点行，供建议服务与交互展示使用
func Anchors(old []string) []string {
	return anchorLines(old)
}

// anchorLines 提取 hunk 旧文中的锚点行（宽松归一化，缩进已随折叠去除）
func anchorLines(old []string) []string {
	var anchors []string
	for _, l := range old {
		t := looseLine(l)
		if anchorPattern.MatchString(t) {
			anchors = append(anchors, t)
		}
	}
	return anchors
}

// windowHasAnchor 判断窗口（宽松归一化后的行）内是否出现任一锚点行
func windowHasAnchor(window []string, anchors []string) bool {
	if len(anchors) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(window))
	for _, l := range window {
		set[l] = struct{}{}
	}
	for _, a := range anchors {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

// FindCandidates 在文件行中定位 hunk 旧文块。
// recorded 为 0 起始的期望位置（已含前序 hunk 的行偏移修正），-1 表示
// 无行号信息（括号方言），此时跳过记录位附近的快速路径直接全文扫描。
//
// 查找顺序：记录位精确比对 → 记录位邻域精确扫描（由近及远）→
// 全文精确扫描 → 全文相似度滑窗。精确命中即刻返回单个候选
func FindCandidates(fileLines, oldLines []string, recorded int, cfg Config) ([]Candidate, error) {
	cfg = cfg.normalized()

	// 纯插入（无上下文）：锚定在记录位，越界收拢
	if len(oldLines) == 0 {
		pos := recorded
		if pos < 0 {
			pos = len(fileLines)
		}
		if pos > len(fileLines) {
			pos = len(fileLines)
		}
		return []Candidate{{Position: pos, Score: 1, Exact: true}}, nil
	}

	file := normLines(fileLines)
	old := normLines(oldLines)
	last := len(file) - len(old)
	if last < 0 {
		return nil, &MatchError{Kind: NoCandidate}
	}

	exactAt := func(pos int) bool {
		for i, l := range old {
			if file[pos+i] != l {
				return false
			}
		}
		return true
	}

	// 1. 记录位本身
	if recorded >= 0 && recorded <= last && exactAt(recorded) {
		return []Candidate{{Position: recorded, Score: 1, Exact: true}}, nil
	}

	// 2. 记录位邻域，由近及远
	if recorded >= 0 {
		for d := 1; d <= cfg.MaxOffsetDrift; d++ {
			for _, pos := range []int{recorded - d, recorded + d} {
				if pos >= 0 && pos <= last && exactAt(pos) {
					return []Candidate{{Position: pos, Score: 1, Exact: true}}, nil
				}
			}
		}
	}

	// 3. 全文精确扫描
	for pos := 0; pos <= last; pos++ {
		if exactAt(pos) {
			return []Candidate{{Position: pos, Score: 1, Exact: true}}, nil
		}
	}

	// 4. 全文相似度滑窗（宽松归一化）
	looseFile := looseLines(fileLines)
	looseOld := looseLines(oldLines)
	anchors := anchorLines(oldLines)

	var cands []Candidate
	best := 0.0
	for pos := 0; pos <= last; pos++ {
		window := looseFile[pos : pos+len(looseOld)]
		// 上界粗筛；留一段余量让接近阈值的位置也算出真实分数，
		// 供 LowConfidence 报告 best
		if quickRatio(window, looseOld) < cfg.Threshold/2 {
			continue
		}
		score := Similarity(window, looseOld)
		if score > best {
			best = score
		}
		if score < cfg.Threshold {
			continue
		}
		if cfg.UseAnchors && windowHasAnchor(window, anchors) {
			score += anchorBonus
			if score > 1 {
				score = 1
			}
		}
		cands = append(cands, Candidate{Position: pos, Score: score})
	}

	if len(cands) == 0 {
		if best > 0 {
			return nil, &MatchError{Kind: LowConfidence, Best: best}
		}
		return nil, &MatchError{Kind: NoCandidate}
	}

	cfg.TieBreak(recorded, cands)
	return cands, nil
}

// Unambiguous 判断排序后的候选是否可以自动采信：
// 唯一候选，或最优与次优分差超过平局边界
func Unambiguous(cands []Candidate, cfg Config) bool {
	cfg = cfg.normalized()
	if len(cands) == 0 {
		return false
	}
	if len(cands) == 1 {
		return true
	}
	return cands[0].Score-cands[1].Score >= cfg.TieMargin
}

// TopCandidates 返回与最优分差在平局边界内的候选（歧义集合）
func TopCandidates(cands []Candidate, cfg Config) []Candidate {
	cfg = cfg.normalized()
	if len(cands) == 0 {
		return nil
	}
	top := []Candidate{cands[0]}
	for _, c := range cands[1:] {
		if cands[0].Score-c.Score < cfg.TieMargin {
			top = append(top, c)
		}
	}
	return top
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
