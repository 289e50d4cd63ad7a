// Package fileindex 把补丁中的文件路径解析为项目内的真实文件。
//
// 所有文件访问都经过锚定在项目根的 afero.BasePathFs 沙盒，越界路径
// 在解析阶段就被拒绝。解析顺序：精确相对路径 → 基名索引（懒构建、
// 排除目录跳过）→ 唯一后缀消歧；都失败时返回带 "你是不是想找"
// 建议的 FileResolutionError
package fileindex

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/afero"
)

// DefaultExcludes 基名索引默认跳过的目录
var DefaultExcludes = []string{".git", ".venv", "node_modules", ".diff_backups"}

// maxSuggestions NotFound 错误携带的最大建议数
const maxSuggestions = 3

// Index 项目文件索引
type Index struct {
	fs       afero.Fs
	root     string // 绝对路径，仅用于展示
	excludes []string

	mu      sync.Mutex
	built   bool
	listing []string            // 项目内全部文件的相对路径（/ 分隔，已排序）
	byName  map[string][]string // 基名 → 相对路径
}

// New 创建锚定在 root 的索引；root 必须是已存在的目录
func New(root string, extraExcludes []string) (*Index, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", absRoot)
	}

	sandbox := afero.NewBasePathFs(afero.NewOsFs(), absRoot)
	return NewFromFs(sandbox, absRoot, extraExcludes), nil
}

// NewFromFs 基于任意 afero 文件系统创建索引（测试用 MemMapFs）
func NewFromFs(fsys afero.Fs, root string, extraExcludes []string) *Index {
	excludes := make([]string, 0, len(DefaultExcludes)+len(extraExcludes))
	excludes = append(excludes, DefaultExcludes...)
	for _, e := range extraExcludes {
		e = strings.TrimSpace(e)
		if e != "" {
			excludes = append(excludes, filepath.ToSlash(e))
		}
	}
	return &Index{fs: fsys, root: root, excludes: excludes}
}

// Root 返回项目根的绝对路径
func (ix *Index) Root() string { return ix.root }

// Fs 返回沙盒文件系统（写入层共用同一沙盒）
func (ix *Index) Fs() afero.Fs { return ix.fs }

// NormalizePatchPath 归一化补丁中的路径：统一为 / 分隔并 Clean，
// 再剥一层 a/ 或 b/ 前缀；/dev/null 与空串归一化为 ""
func NormalizePatchPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "/dev/null" {
		return ""
	}
	name = path.Clean(filepath.ToSlash(name))
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		name = name[2:]
	}
	if name == "." {
		return ""
	}
	return name
}

// escapesRoot 判断归一化后的相对路径是否越出项目根
func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel)
}

// Resolve 解析补丁路径为项目内相对路径。
// 依次尝试：精确路径 → 基名唯一匹配 → 唯一后缀消歧
func (ix *Index) Resolve(name string) (string, error) {
	rel := NormalizePatchPath(name)
	if rel == "" {
		return "", &FileResolutionError{Kind: NotFound, Name: name}
	}
	if escapesRoot(rel) {
		return "", fmt.Errorf("resolve %q: %w", name, ErrOutsideRoot)
	}

	if ix.isFile(rel) {
		return rel, nil
	}

	if err := ix.ensureListing(); err != nil {
		return "", err
	}

	ix.mu.Lock()
	cands := append([]string(nil), ix.byName[path.Base(rel)]...)
	ix.mu.Unlock()

	switch len(cands) {
	case 0:
		return "", &FileResolutionError{
			Kind:        NotFound,
			Name:        name,
			Suggestions: ix.suggest(path.Base(rel)),
		}
	case 1:
		return cands[0], nil
	}

	// 多个同名文件：给定路径作为后缀能唯一指认时用它消歧
	var suffixed []string
	for _, c := range cands {
		if c == rel || strings.HasSuffix(c, "/"+rel) {
			suffixed = append(suffixed, c)
		}
	}
	if len(suffixed) == 1 {
		return suffixed[0], nil
	}

	sort.Strings(cands)
	return "", &FileResolutionError{Kind: Ambiguous, Name: name, Candidates: cands}
}

// ResolveNewFile 为新建文件解析目标路径：不越界即可，不要求存在。
// 目标位置被目录占用时报错
func (ix *Index) ResolveNewFile(name string) (string, error) {
	rel := NormalizePatchPath(name)
	if rel == "" {
		return "", &FileResolutionError{Kind: NotFound, Name: name}
	}
	if escapesRoot(rel) {
		return "", fmt.Errorf("resolve %q: %w", name, ErrOutsideRoot)
	}
	if info, err := ix.fs.Stat(rel); err == nil && info.IsDir() {
		return "", fmt.Errorf("cannot create file %s: a directory occupies the path", rel)
	}
	return rel, nil
}

// Refresh 丢弃基名索引缓存（新建文件后调用）
func (ix *Index) Refresh() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.built = false
	ix.listing = nil
	ix.byName = nil
}

// List 返回排序后的项目文件相对路径（副本）
func (ix *Index) List() ([]string, error) {
	if err := ix.ensureListing(); err != nil {
		return nil, err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.listing...), nil
}

// Excluded 判断相对路径是否命中排除规则。
// 排除项既可以是纯目录名（命中任意路径段），也可以是 doublestar 模式
func (ix *Index) Excluded(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || rel == "" {
		return false
	}
	for _, p := range ix.excludes {
		for _, pattern := range []string{p, "**/" + p, "**/" + p + "/**"} {
			if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// isFile 判断相对路径存在且是普通文件
func (ix *Index) isFile(rel string) bool {
	info, err := ix.fs.Stat(rel)
	return err == nil && !info.IsDir()
}

// ensureListing 懒构建一次基名索引，排除目录整棵跳过
func (ix *Index) ensureListing() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.built {
		return nil
	}

	listing := make([]string, 0, 256)
	byName := make(map[string][]string)

	err := afero.Walk(ix.fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			// 个别目录不可读不阻断索引
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), "./")
		if rel == "." || rel == "" {
			return nil
		}
		if ix.Excluded(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		listing = append(listing, rel)
		byName[path.Base(rel)] = append(byName[path.Base(rel)], rel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("index project files: %w", err)
	}

	sort.Strings(listing)
	for name := range byName {
		sort.Strings(byName[name])
	}

	ix.listing = listing
	ix.byName = byName
	ix.built = true
	return nil
}

// suggest 返回与 base 最接近的基名（调用方已持有列表构建完成的保证）
func (ix *Index) suggest(base string) []string {
	ix.mu.Lock()
	names := make([]string, 0, len(ix.byName))
	for name := range ix.byName {
		names = append(names, name)
	}
	ix.mu.Unlock()

	ranks := fuzzy.RankFindNormalizedFold(base, names)
	sort.Sort(ranks)

	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out
}
