// Package logging 提供全局结构化日志。
//
// 控制台（stderr）始终输出；配置了 log_file 时同时写入按大小轮转的
// 日志文件。级别与落盘参数来自配置，FKPATCH_LOG_* 环境变量优先：
//
//	FKPATCH_LOG_LEVEL / FKPATCH_LOG_FILE /
//	FKPATCH_LOG_MAX_BYTES / FKPATCH_LOG_BACKUP_COUNT
package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志初始化参数
type Options struct {
	Level       string // debug | info | warning | error
	File        string // 为空则只输出到控制台
	MaxBytes    int    // 单个日志文件体积上限（字节）
	BackupCount int    // 轮转文件保留个数
}

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

func init() {
	// Setup 之前的缺省 logger：stderr，warning 级别
	logger = newConsoleLogger(zapcore.WarnLevel)
}

// Setup 按配置重建全局 logger，重复调用以最后一次为准
func Setup(opts Options) *zap.Logger {
	opts = applyEnv(opts)
	level := ParseLevel(opts.Level)

	encCfg := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		// lumberjack 以 MB 为单位，向上取整保证小配置也能轮转
		maxMB := opts.MaxBytes / (1 << 20)
		if maxMB < 1 {
			maxMB = 1
		}
		sink := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxMB,
			MaxBackups: opts.BackupCount,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level))
	}

	l := zap.New(zapcore.NewTee(cores...))

	mu.Lock()
	logger = l
	mu.Unlock()
	return l
}

// L 返回全局 logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// S 返回全局 sugared logger
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Replace 把全局 logger 换成给定实例并返回恢复函数，供测试注入观察器
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := logger
	logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Sync 刷新所有输出目标，进程退出前调用
func Sync() {
	_ = L().Sync()
}

// ParseLevel 解析配置中的级别名，未知值回落到 warning
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

func applyEnv(opts Options) Options {
	if v := os.Getenv("FKPATCH_LOG_LEVEL"); v != "" {
		opts.Level = v
	}
	if v := os.Getenv("FKPATCH_LOG_FILE"); v != "" {
		opts.File = v
	}
	if v := os.Getenv("FKPATCH_LOG_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxBytes = n
		}
	}
	if v := os.Getenv("FKPATCH_LOG_BACKUP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.BackupCount = n
		}
	}
	return opts
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func newConsoleLogger(level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
