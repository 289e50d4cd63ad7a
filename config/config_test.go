package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ============================================================
// 加载
// ============================================================

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Threshold != def.Threshold || cfg.ServerPort != def.ServerPort || !cfg.DryRunDefault {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "threshold = 0.9\nexclude_dirs = [\"**/vendor\"]\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 0.9 {
		t.Errorf("threshold = %v", cfg.Threshold)
	}
	if len(cfg.ExcludeDirs) != 1 || cfg.ExcludeDirs[0] != "**/vendor" {
		t.Errorf("exclude_dirs = %v", cfg.ExcludeDirs)
	}
	// 未覆盖的键保持默认
	if !cfg.WriteReports || cfg.ServerPort != 23456 {
		t.Errorf("untouched keys changed: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct{ name, content string }{
		{"threshold", "threshold = 1.5\n"},
		{"log_level", "log_level = \"verbose\"\n"},
		{"strategy", "matching_strategy = \"random\"\n"},
		{"port", "server_port = 0\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// ============================================================
// Set / Reset
// ============================================================

func TestSetTypedParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Set(path, "threshold", "0.75"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Set(path, "assist_enabled", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := Set(path, "exclude_dirs", "**/vendor, **/dist"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 0.75 || !cfg.AssistEnabled {
		t.Fatalf("values not persisted: %+v", cfg)
	}
	if len(cfg.ExcludeDirs) != 2 || cfg.ExcludeDirs[1] != "**/dist" {
		t.Fatalf("exclude_dirs = %v", cfg.ExcludeDirs)
	}
}

func TestSetUnknownKeyListsValidKeys(t *testing.T) {
	err := Set(filepath.Join(t.TempDir(), "config.toml"), "treshold", "0.9")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "threshold") || !strings.Contains(err.Error(), "server_port") {
		t.Fatalf("error should list valid keys: %v", err)
	}
}

func TestSetRejectsBadValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Set(path, "server_port", "not-a-number"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := Set(path, "threshold", "2.0"); err == nil {
		t.Fatal("out-of-range threshold should fail validation on save")
	}
}

func TestResetSingleKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Set(path, "threshold", "0.7"); err != nil {
		t.Fatal(err)
	}
	if err := Set(path, "server_port", "9000"); err != nil {
		t.Fatal(err)
	}
	if err := Reset(path, "threshold"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threshold != 0.85 {
		t.Errorf("threshold not reset: %v", cfg.Threshold)
	}
	if cfg.ServerPort != 9000 {
		t.Errorf("other keys must survive a single-key reset: %d", cfg.ServerPort)
	}
}

func TestResetAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := Set(path, "server_port", "9000"); err != nil {
		t.Fatal(err)
	}
	if err := Reset(path, ""); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != 23456 {
		t.Errorf("full reset should restore defaults: %d", cfg.ServerPort)
	}
}

func TestResetUnknownKey(t *testing.T) {
	if err := Reset(filepath.Join(t.TempDir(), "c.toml"), "bogus"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

// ============================================================
// 其它
// ============================================================

func TestKeysSortedAndComplete(t *testing.T) {
	keys := Keys()
	if len(keys) != 16 {
		t.Fatalf("got %d keys, want 16", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}

func TestPrettyJSON(t *testing.T) {
	out, err := Default().PrettyJSON()
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	if !strings.Contains(out, "\"threshold\": 0.85") {
		t.Fatalf("json view wrong:\n%s", out)
	}
}
