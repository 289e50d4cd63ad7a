package gitinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ============================================================
// 测试辅助
// ============================================================

// initRepo 初始化一个带单次提交的仓库，返回仓库与被跟踪文件路径
func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}

	file := filepath.Join(dir, "tracked.txt")
	if err := os.WriteFile(file, []byte("v1\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("tracked.txt"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	return dir, file
}

// ============================================================
// Collect 测试
// ============================================================

func TestCollectNonRepo(t *testing.T) {
	info := Collect(t.TempDir())
	if info.IsRepo {
		t.Error("plain directory should not be reported as a repo")
	}
	if info.Branch != "" || info.Commit != "" || info.Dirty {
		t.Errorf("expected zero value, got %+v", info)
	}
}

func TestCollectCleanRepo(t *testing.T) {
	dir, _ := initRepo(t)

	info := Collect(dir)
	if !info.IsRepo {
		t.Fatal("expected IsRepo")
	}
	if info.Branch != "master" {
		t.Errorf("Branch = %q, want master", info.Branch)
	}
	if len(info.Commit) != shortHashLen {
		t.Errorf("Commit = %q, want %d hex chars", info.Commit, shortHashLen)
	}
	if info.Dirty {
		t.Error("freshly committed worktree should be clean")
	}
}

func TestCollectDirtyRepo(t *testing.T) {
	dir, file := initRepo(t)

	if err := os.WriteFile(file, []byte("v2\n"), 0o644); err != nil {
		t.Fatalf("modify file: %v", err)
	}

	info := Collect(dir)
	if !info.Dirty {
		t.Error("modified tracked file should mark worktree dirty")
	}
}

func TestCollectUntrackedFileIsDirty(t *testing.T) {
	dir, _ := initRepo(t)

	if err := os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	info := Collect(dir)
	if !info.Dirty {
		t.Error("untracked file should mark worktree dirty")
	}
}

// ============================================================
// String 测试
// ============================================================

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{}, "not a git repository"},
		{Info{IsRepo: true, Branch: "main", Commit: "abcd1234"}, "main@abcd1234"},
		{Info{IsRepo: true, Branch: "main", Commit: "abcd1234", Dirty: true}, "main@abcd1234 (dirty)"},
		{Info{IsRepo: true, Commit: "abcd1234"}, "(detached)@abcd1234"},
		{Info{IsRepo: true, Branch: "dev"}, "dev"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("String(%+v) = %q, want %q", tt.info, got, tt.want)
		}
	}
}
