package common

import (
	"fmt"
	"sync"
)

// CleanupFunc 一项退出清理动作
type CleanupFunc func() error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// ResourceCleaner 收集退出清理动作，Execute 时按注册的逆序执行。
// 服务端用它串起 cron 停止、目录巡检取消等收尾工作
type ResourceCleaner struct {
	mu      sync.Mutex
	entries []cleanupEntry
}

func NewResourceCleaner() *ResourceCleaner {
	return &ResourceCleaner{}
}

// Add 注册一个匿名清理动作
func (rc *ResourceCleaner) Add(fn CleanupFunc) {
	rc.AddNamed("", fn)
}

// AddNamed 注册一个带名称的清理动作，名称用于错误定位
func (rc *ResourceCleaner) AddNamed(name string, fn CleanupFunc) {
	rc.mu.Lock()
	rc.entries = append(rc.entries, cleanupEntry{name: name, fn: fn})
	rc.mu.Unlock()
}

// Execute 逆序执行全部清理动作并清空列表。
// 单项失败或 panic 不影响其余项，所有错误一并返回
func (rc *ResourceCleaner) Execute() []error {
	rc.mu.Lock()
	entries := rc.entries
	rc.entries = nil
	rc.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].fn == nil {
			continue
		}
		if err := runCleanup(entries[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func runCleanup(e cleanupEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup %q panicked: %v", e.name, r)
		}
	}()
	if err := e.fn(); err != nil {
		if e.name != "" {
			return fmt.Errorf("cleanup %q: %w", e.name, err)
		}
		return err
	}
	return nil
}
