// Package config 提供 TOML 配置的加载、修改与示例生成。
// 缺省路径 config/config.toml，文件不存在时直接使用默认值
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath 缺省配置文件路径（相对工作目录）
const DefaultPath = "config/config.toml"

// Config 全部配置项，一层扁平结构
type Config struct {
	Threshold           float64  `toml:"threshold" json:"threshold"`                         // 模糊匹配相似度下限
	ExcludeDirs         []string `toml:"exclude_dirs" json:"exclude_dirs"`                   // 文件索引额外排除（doublestar 模式）
	BackupBase          string   `toml:"backup_base" json:"backup_base"`                     // 备份根目录，空取 <root>/.diff_backups
	DryRunDefault       bool     `toml:"dry_run_default" json:"dry_run_default"`             // apply 缺省演练模式
	WriteReports        bool     `toml:"write_reports" json:"write_reports"`                 // 是否写报告工件
	BackupRetentionDays int      `toml:"backup_retention_days" json:"backup_retention_days"` // 0 关闭清理
	BackupKeepMin       int      `toml:"backup_keep_min" json:"backup_keep_min"`             // 清理时至少保留的会话数
	LogLevel            string   `toml:"log_level" json:"log_level"`
	LogFile             string   `toml:"log_file" json:"log_file"`
	LogMaxBytes         int      `toml:"log_max_bytes" json:"log_max_bytes"`
	LogBackupCount      int      `toml:"log_backup_count" json:"log_backup_count"`
	AssistEnabled       bool     `toml:"assist_enabled" json:"assist_enabled"`
	AssistAutoApply     bool     `toml:"assist_auto_apply" json:"assist_auto_apply"`
	MatchingStrategy    string   `toml:"matching_strategy" json:"matching_strategy"` // nearest | first
	UseAnchors          bool     `toml:"use_anchors" json:"use_anchors"`
	ServerPort          int      `toml:"server_port" json:"server_port"`
}

// Default 全部默认值
func Default() *Config {
	return &Config{
		Threshold:           0.85,
		ExcludeDirs:         []string{},
		DryRunDefault:       true,
		WriteReports:        true,
		BackupRetentionDays: 0,
		BackupKeepMin:       1,
		LogLevel:            "warning",
		LogMaxBytes:         1 << 20,
		LogBackupCount:      3,
		MatchingStrategy:    "nearest",
		UseAnchors:          true,
		ServerPort:          23456,
	}
}

// Load 从指定路径加载；文件不存在返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Get 按缺省路径加载
func Get() (*Config, error) {
	return Load(DefaultPath)
}

// Save 写回配置文件
func Save(path string, cfg *Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("无法创建目录 %s: %w", filepath.Dir(path), err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GenerateExample 生成带默认值的示例配置
func GenerateExample() error {
	return Save(DefaultPath, Default())
}

// PrettyJSON 生效配置的 JSON 视图（config show 用）
func (c *Config) PrettyJSON() (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warning|error, got %q", c.LogLevel)
	}
	switch c.MatchingStrategy {
	case "nearest", "first":
	default:
		return fmt.Errorf("matching_strategy must be nearest or first, got %q", c.MatchingStrategy)
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port out of range: %d", c.ServerPort)
	}
	if c.BackupKeepMin < 1 {
		return fmt.Errorf("backup_keep_min must be at least 1, got %d", c.BackupKeepMin)
	}
	return nil
}

// ============================================================
// 按键名读写（config set / reset）
// ============================================================

// setters 键名 → 类型化赋值；键集合即合法键列表
var setters = map[string]func(c *Config, v string) error{
	"threshold":             func(c *Config, v string) error { return parseFloat(v, &c.Threshold) },
	"exclude_dirs":          func(c *Config, v string) error { c.ExcludeDirs = splitList(v); return nil },
	"backup_base":           func(c *Config, v string) error { c.BackupBase = v; return nil },
	"dry_run_default":       func(c *Config, v string) error { return parseBool(v, &c.DryRunDefault) },
	"write_reports":         func(c *Config, v string) error { return parseBool(v, &c.WriteReports) },
	"backup_retention_days": func(c *Config, v string) error { return parseInt(v, &c.BackupRetentionDays) },
	"backup_keep_min":       func(c *Config, v string) error { return parseInt(v, &c.BackupKeepMin) },
	"log_level":             func(c *Config, v string) error { c.LogLevel = v; return nil },
	"log_file":              func(c *Config, v string) error { c.LogFile = v; return nil },
	"log_max_bytes":         func(c *Config, v string) error { return parseInt(v, &c.LogMaxBytes) },
	"log_backup_count":      func(c *Config, v string) error { return parseInt(v, &c.LogBackupCount) },
	"assist_enabled":        func(c *Config, v string) error { return parseBool(v, &c.AssistEnabled) },
	"assist_auto_apply":     func(c *Config, v string) error { return parseBool(v, &c.AssistAutoApply) },
	"matching_strategy":     func(c *Config, v string) error { c.MatchingStrategy = v; return nil },
	"use_anchors":           func(c *Config, v string) error { return parseBool(v, &c.UseAnchors) },
	"server_port":           func(c *Config, v string) error { return parseInt(v, &c.ServerPort) },
}

// Keys 全部合法配置键，字典序
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set 类型化写入单个键并保存
func Set(path, key, value string) error {
	setter, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q, valid keys: %s", key, strings.Join(Keys(), ", "))
	}
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := setter(cfg, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return Save(path, cfg)
}

// Reset 恢复单个键为默认值；key 为空恢复全部
func Reset(path, key string) error {
	if key == "" {
		return Save(path, Default())
	}
	if _, ok := setters[key]; !ok {
		return fmt.Errorf("unknown config key %q, valid keys: %s", key, strings.Join(Keys(), ", "))
	}
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	// 经 TOML 映射把默认值的对应键拷回当前配置
	cur, err := tomlMap(cfg)
	if err != nil {
		return err
	}
	def, err := tomlMap(Default())
	if err != nil {
		return err
	}
	cur[key] = def[key]
	merged, err := toml.Marshal(cur)
	if err != nil {
		return err
	}
	out := new(Config)
	if err := toml.Unmarshal(merged, out); err != nil {
		return err
	}
	return Save(path, out)
}

func tomlMap(cfg *Config) (map[string]any, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %q", v)
	}
	*dst = f
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", v)
	}
	*dst = n
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", v)
	}
	*dst = b
	return nil
}

// splitList 逗号分隔列表，空串为清空
func splitList(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
