package common

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ============================================================
// ResourceCleaner 测试
// ============================================================

func TestCleanerRunsInReverseOrder(t *testing.T) {
	rc := NewResourceCleaner()
	var order []string
	rc.AddNamed("first", func() error { order = append(order, "first"); return nil })
	rc.AddNamed("second", func() error { order = append(order, "second"); return nil })

	if errs := rc.Execute(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("execution order = %v, want LIFO", order)
	}
}

func TestCleanerCollectsErrorsAndNames(t *testing.T) {
	rc := NewResourceCleaner()
	boom := errors.New("boom")
	rc.AddNamed("watcher", func() error { return boom })
	rc.Add(func() error { return nil })

	errs := rc.Execute()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("cause not wrapped: %v", errs[0])
	}
	if !strings.Contains(errs[0].Error(), "watcher") {
		t.Errorf("error should carry the cleanup name, got %q", errs[0])
	}
}

func TestCleanerRecoversPanic(t *testing.T) {
	rc := NewResourceCleaner()
	ran := false
	rc.AddNamed("bad", func() error { panic("nope") })
	rc.AddNamed("good", func() error { ran = true; return nil })

	errs := rc.Execute()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "bad") {
		t.Errorf("panic should surface as a named error, got %v", errs)
	}
	if !ran {
		t.Error("panic in one cleanup must not stop the others")
	}
}

func TestCleanerExecuteClears(t *testing.T) {
	rc := NewResourceCleaner()
	calls := 0
	rc.Add(func() error { calls++; return nil })
	rc.Execute()
	rc.Execute()
	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}
}

// ============================================================
// OnceWithReset 测试
// ============================================================

func TestOnceFiresOnceUntilReset(t *testing.T) {
	o := NewOnceWithReset()
	calls := 0
	o.Do(func() { calls++ })
	o.Do(func() { calls++ })
	if calls != 1 {
		t.Fatalf("fired %d times before reset, want 1", calls)
	}
	if !o.IsTriggered() {
		t.Error("IsTriggered should report true after Do")
	}

	o.Reset()
	if o.IsTriggered() {
		t.Error("IsTriggered should report false after Reset")
	}
	o.Do(func() { calls++ })
	if calls != 2 {
		t.Errorf("fired %d times after reset, want 2", calls)
	}
}

// ============================================================
// 示例 .env 生成测试
// ============================================================

func TestGenerateExampleEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.example")
	if err := GenerateExampleEnv(path); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{"FKPATCH_ASSIST_ENDPOINT", "FKPATCH_LOG_LEVEL", "FKPATCH_PROXY_URL"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("example env missing %s", key)
		}
	}
}
