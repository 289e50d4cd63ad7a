package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ============================================================
// 级别解析测试
// ============================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"WARNING", zapcore.WarnLevel},
		{"  info  ", zapcore.InfoLevel},
		{"bogus", zapcore.WarnLevel},
		{"", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// ============================================================
// Setup 测试
// ============================================================

func TestSetupWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "fkpatch.log")

	l := Setup(Options{Level: "info", File: logFile, MaxBytes: 1 << 20, BackupCount: 2})
	l.Info("session started", zap.String("session", "20240101-010203-004"))
	_ = l.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "session started") {
		t.Errorf("log file missing message: %q", data)
	}
	if !strings.Contains(string(data), "20240101-010203-004") {
		t.Errorf("log file missing field: %q", data)
	}
}

func TestSetupLevelFiltersFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "fkpatch.log")

	l := Setup(Options{Level: "error", File: logFile, MaxBytes: 1 << 20})
	l.Info("quiet info message")
	_ = l.Sync()

	data, _ := os.ReadFile(logFile)
	if strings.Contains(string(data), "quiet info message") {
		t.Error("info message should be filtered at error level")
	}
}

func TestSetupWithoutFile(t *testing.T) {
	l := Setup(Options{Level: "warning"})
	if l == nil {
		t.Fatal("expected logger")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warning level should be enabled")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be disabled at warning")
	}
}

func TestSetupReplacesGlobal(t *testing.T) {
	first := Setup(Options{Level: "error"})
	second := Setup(Options{Level: "debug"})
	if L() != second {
		t.Error("L() should return the most recent Setup result")
	}
	if first == second {
		t.Error("Setup should build a fresh logger")
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("global should honor the new debug level")
	}
}

// ============================================================
// 环境变量覆盖测试
// ============================================================

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv("FKPATCH_LOG_LEVEL", "debug")

	l := Setup(Options{Level: "error"})
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("FKPATCH_LOG_LEVEL should override configured level")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "env.log")
	t.Setenv("FKPATCH_LOG_FILE", logFile)

	l := Setup(Options{Level: "info"})
	l.Warn("env-routed message")
	_ = l.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read env log file: %v", err)
	}
	if !strings.Contains(string(data), "env-routed message") {
		t.Errorf("env log file missing message: %q", data)
	}
}

func TestEnvOverridesNumericFields(t *testing.T) {
	t.Setenv("FKPATCH_LOG_MAX_BYTES", "2097152")
	t.Setenv("FKPATCH_LOG_BACKUP_COUNT", "7")

	opts := applyEnv(Options{MaxBytes: 1024, BackupCount: 1})
	if opts.MaxBytes != 2097152 {
		t.Errorf("MaxBytes = %d, want 2097152", opts.MaxBytes)
	}
	if opts.BackupCount != 7 {
		t.Errorf("BackupCount = %d, want 7", opts.BackupCount)
	}
}

func TestEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("FKPATCH_LOG_MAX_BYTES", "not-a-number")

	opts := applyEnv(Options{MaxBytes: 4096})
	if opts.MaxBytes != 4096 {
		t.Errorf("invalid env value should keep configured MaxBytes, got %d", opts.MaxBytes)
	}
}
