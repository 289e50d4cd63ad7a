// Package assist 对接外部建议服务，为歧义 hunk 给出候选推荐。
//
// 服务只是又一个排序输入：推荐结果永远不覆盖用户的显式选择，调用
// 失败也绝不让 hunk 失败，协议会继续尝试下一个决策源。未配置端点
// 时退化为本地启发式排序。
//
// 环境变量：FKPATCH_ASSIST_ENDPOINT / FKPATCH_ASSIST_TOKEN
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fkpatch/logging"
)

const (
	// DefaultTimeout 服务调用的单次超时，超时视为不可用
	DefaultTimeout = 10 * time.Second
	// excerptLimit 请求中上下文摘要的最大字节数
	excerptLimit = 400
	// heuristicCap 本地启发式的置信度上限
	heuristicCap = 0.6

	envEndpoint = "FKPATCH_ASSIST_ENDPOINT"
	envToken    = "FKPATCH_ASSIST_TOKEN"
)

// CandidateInfo 请求中携带的候选描述
type CandidateInfo struct {
	Position int     `json:"position"` // 1 起始行号
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"` // 候选窗口的内容摘要
}

// Request 一次建议请求
type Request struct {
	Path       string          `json:"path"`
	Hunk       string          `json:"hunk"` // hunk 文本摘要
	Anchors    []string        `json:"anchors,omitempty"`
	Recorded   int             `json:"recorded,omitempty"` // 补丁记录的行号（1 起始），0 表示未知
	Candidates []CandidateInfo `json:"candidates"`
}

// Suggestion 服务的推荐结果
type Suggestion struct {
	CandidateIndex int     `json:"candidate_index"` // 候选下标，-1 表示只给自由文本建议
	Position       int     `json:"position,omitempty"`
	Confidence     float64 `json:"confidence"`
	Explanation    string  `json:"explanation,omitempty"`
	// DiffFragment 无候选过阈值时服务可改为返回可粘贴的 diff 片段，
	// 只展示给调用方，引擎不会自动应用
	DiffFragment string `json:"diff_fragment,omitempty"`
}

// Client 建议服务客户端
type Client struct {
	endpoint string
	token    string
	hc       *http.Client
}

// NewFromEnv 按环境变量创建客户端；未配置端点时 Remote 为 false
func NewFromEnv() *Client {
	return New(os.Getenv(envEndpoint), os.Getenv(envToken), DefaultTimeout)
}

// New 创建客户端
func New(endpoint, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		hc:       &http.Client{Timeout: timeout},
	}
}

// Remote 判断是否配置了远端服务
func (c *Client) Remote() bool {
	return c != nil && c.endpoint != ""
}

// Suggest 请求一次推荐。远端不可用或应答无法使用时回落到本地启发式；
// 两者都给不出答案才返回错误
func (c *Client) Suggest(ctx context.Context, req *Request) (*Suggestion, error) {
	if c.Remote() {
		sug, err := c.remote(ctx, req)
		if err == nil {
			return sug, nil
		}
		logging.L().Warn("assist service unavailable, falling back to heuristic",
			zap.String("path", req.Path), zap.Error(err))
	}
	return Heuristic(req)
}

// remote 调用远端服务并校验应答
func (c *Client) remote(ctx context.Context, req *Request) (*Suggestion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode assist request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assist service returned status %d", resp.StatusCode)
	}

	var sug Suggestion
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&sug); err != nil {
		return nil, fmt.Errorf("decode assist response: %w", err)
	}
	if sug.CandidateIndex >= len(req.Candidates) {
		return nil, fmt.Errorf("assist picked candidate %d of %d", sug.CandidateIndex, len(req.Candidates))
	}
	if sug.Confidence < 0 || sug.Confidence > 1 {
		return nil, fmt.Errorf("assist confidence %v out of range", sug.Confidence)
	}
	return &sug, nil
}

// Heuristic 本地启发式：按 锚点重合 + 相似度 + 距记录行号的接近度
// 排序候选，置信度封顶 0.6
func Heuristic(req *Request) (*Suggestion, error) {
	if len(req.Candidates) == 0 {
		// 无候选可排时退一步：把 hunk 本身作为可手工粘贴的片段返回
		return &Suggestion{
			CandidateIndex: -1,
			Explanation:    "no candidate cleared the threshold; apply the fragment manually",
			DiffFragment:   req.Hunk,
		}, nil
	}

	bestIdx, bestScore := 0, -1.0
	for i, c := range req.Candidates {
		score := c.Score
		for _, a := range req.Anchors {
			if a != "" && containsLine(c.Excerpt, a) {
				score += 0.1
				break
			}
		}
		if req.Recorded > 0 {
			dist := c.Position - req.Recorded
			if dist < 0 {
				dist = -dist
			}
			score += 0.1 / (1 + float64(dist))
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}

	conf := req.Candidates[bestIdx].Score
	if conf > heuristicCap {
		conf = heuristicCap
	}
	return &Suggestion{
		CandidateIndex: bestIdx,
		Position:       req.Candidates[bestIdx].Position,
		Confidence:     conf,
		Explanation:    "local heuristic ranking (anchor overlap, similarity, proximity)",
	}, nil
}

// containsLine 判断摘要中存在与锚点相同的一行（忽略首尾空白）
func containsLine(excerpt, anchor string) bool {
	for _, line := range strings.Split(excerpt, "\n") {
		if strings.TrimSpace(line) == anchor {
			return true
		}
	}
	return false
}
