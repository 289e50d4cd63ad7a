// Package filetypes 提供文件类型识别与空白保留规则。
//
// 规则内嵌在 filetypes.yaml 中：扩展名（或精确文件名）映射到语言名、
// 是否保留行尾空白、是否保留末尾换行。执行器据此决定补丁侧行尾空白
// 的归一化策略，报告中也会记录识别出的语言
package filetypes

import (
	_ "embed"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
)

//go:embed filetypes.yaml
var rulesYAML []byte

// Rule 描述一类文件的补丁处理规则
type Rule struct {
	Language                   string   `yaml:"language"`
	Extensions                 []string `yaml:"extensions"`
	Filenames                  []string `yaml:"filenames"`
	PreserveTrailingWhitespace bool     `yaml:"preserve_trailing_whitespace"`
	PreserveFinalNewline       bool     `yaml:"preserve_final_newline"`
}

type ruleSet struct {
	Default Rule   `yaml:"default"`
	Types   []Rule `yaml:"types"`
}

var (
	loadOnce    sync.Once
	byExt       map[string]Rule
	byName      map[string]Rule
	defaultRule Rule
)

// builtinDefault 在规则文件不可用时兜底
var builtinDefault = Rule{
	Language:                   "text",
	PreserveTrailingWhitespace: true,
	PreserveFinalNewline:       true,
}

func load() {
	byExt = make(map[string]Rule)
	byName = make(map[string]Rule)
	defaultRule = builtinDefault

	var rs ruleSet
	if err := yaml.Unmarshal(rulesYAML, &rs); err != nil {
		return
	}
	if rs.Default.Language != "" {
		defaultRule = rs.Default
	}
	for _, r := range rs.Types {
		for _, ext := range r.Extensions {
			byExt[strings.ToLower(ext)] = r
		}
		for _, name := range r.Filenames {
			byName[name] = r
		}
	}
}

// Lookup 返回路径对应的规则，未命中时返回默认规则
func Lookup(path string) Rule {
	loadOnce.Do(load)

	base := filepath.Base(path)
	if r, ok := byName[base]; ok {
		return r
	}
	if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
		if r, ok := byExt[ext]; ok {
			return r
		}
	}
	return defaultRule
}

// Known 返回规则表覆盖的语言名（去重，不含默认规则）
func Known() []string {
	loadOnce.Do(load)

	seen := make(map[string]struct{})
	var out []string
	for _, r := range byExt {
		if _, ok := seen[r.Language]; ok {
			continue
		}
		seen[r.Language] = struct{}{}
		out = append(out, r.Language)
	}
	for _, r := range byName {
		if _, ok := seen[r.Language]; ok {
			continue
		}
		seen[r.Language] = struct{}{}
		out = append(out, r.Language)
	}
	return out
}
