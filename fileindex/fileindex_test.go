package fileindex

import (
	"errors"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// ============================================================
// 测试辅助
// ============================================================

func newTestIndex(t *testing.T, files []string, extraExcludes ...string) *Index {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, f := range files {
		if err := afero.WriteFile(fsys, f, []byte("content of "+f+"\n"), 0o644); err != nil {
			t.Fatalf("seed file %s: %v", f, err)
		}
	}
	return NewFromFs(fsys, "/project", extraExcludes)
}

// ============================================================
// NormalizePatchPath 测试
// ============================================================

func TestNormalizePatchPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a/src/main.go", "src/main.go"},
		{"b/src/main.go", "src/main.go"},
		{"src/main.go", "src/main.go"},
		{"./src/main.go", "src/main.go"},
		{"a/./x.go", "x.go"},
		{"b/config.go", "config.go"},
		{"a/b/config.go", "b/config.go"}, // 只剥一层前缀
		{"/dev/null", ""},
		{"", ""},
		{"  spaced.go  ", "spaced.go"},
		{"a//double//slash.go", "double/slash.go"},
	}
	for _, tt := range tests {
		if got := NormalizePatchPath(tt.input); got != tt.want {
			t.Errorf("NormalizePatchPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ============================================================
// Resolve 测试
// ============================================================

func TestResolveExactPath(t *testing.T) {
	ix := newTestIndex(t, []string{"src/app.py", "src/util.py"})

	rel, err := ix.Resolve("a/src/app.py")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "src/app.py" {
		t.Errorf("rel = %q, want src/app.py", rel)
	}
}

func TestResolveByBasename(t *testing.T) {
	ix := newTestIndex(t, []string{"backend/src/handler.go", "docs/readme.md"})

	// 补丁里的路径前缀与项目布局不一致，按基名唯一匹配
	rel, err := ix.Resolve("a/other/prefix/handler.go")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "backend/src/handler.go" {
		t.Errorf("rel = %q", rel)
	}
}

func TestResolveSuffixDisambiguation(t *testing.T) {
	ix := newTestIndex(t, []string{
		"frontend/src/app.py",
		"backend/src/app.py",
	})

	// 基名撞车，但 "backend/src/app.py" 作为后缀唯一
	rel, err := ix.Resolve("backend/src/app.py")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "backend/src/app.py" {
		t.Errorf("rel = %q", rel)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	ix := newTestIndex(t, []string{
		"frontend/app.py",
		"backend/app.py",
	})

	_, err := ix.Resolve("a/app.py")
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	var rerr *FileResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *FileResolutionError, got %T", err)
	}
	if rerr.Kind != Ambiguous {
		t.Errorf("Kind = %q, want ambiguous", rerr.Kind)
	}
	if len(rerr.Candidates) != 2 {
		t.Errorf("Candidates = %v", rerr.Candidates)
	}
	if !sort.StringsAreSorted(rerr.Candidates) {
		t.Errorf("candidates should be sorted: %v", rerr.Candidates)
	}
}

func TestResolveNotFoundWithSuggestions(t *testing.T) {
	ix := newTestIndex(t, []string{"src/handler.go", "src/handlers_test.go"})

	_, err := ix.Resolve("a/src/handlr.go")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	var rerr *FileResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *FileResolutionError, got %T", err)
	}
	if rerr.Kind != NotFound {
		t.Errorf("Kind = %q, want not_found", rerr.Kind)
	}
	if len(rerr.Suggestions) == 0 {
		t.Error("expected did-you-mean suggestions")
	}
	found := false
	for _, s := range rerr.Suggestions {
		if s == "handler.go" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions %v should include handler.go", rerr.Suggestions)
	}
}

func TestResolveOutsideRoot(t *testing.T) {
	ix := newTestIndex(t, []string{"src/app.py"})

	for _, name := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		_, err := ix.Resolve(name)
		if !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("Resolve(%q) = %v, want ErrOutsideRoot", name, err)
		}
	}
}

func TestResolveEmptyName(t *testing.T) {
	ix := newTestIndex(t, []string{"src/app.py"})

	_, err := ix.Resolve("/dev/null")
	var rerr *FileResolutionError
	if !errors.As(err, &rerr) || rerr.Kind != NotFound {
		t.Errorf("expected not-found for /dev/null, got %v", err)
	}
}

// ============================================================
// 排除规则测试
// ============================================================

func TestResolveSkipsExcludedDirs(t *testing.T) {
	ix := newTestIndex(t, []string{
		"node_modules/pkg/index.js",
		"src/index.js",
	})

	rel, err := ix.Resolve("a/wrong/index.js")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "src/index.js" {
		t.Errorf("rel = %q, node_modules should be excluded", rel)
	}
}

func TestExcludedDefaults(t *testing.T) {
	ix := newTestIndex(t, nil)
	for _, rel := range []string{
		".git/config",
		"sub/.git/HEAD",
		"node_modules/x/y.js",
		".diff_backups/20240101-000000-000/f.txt",
		".venv/bin/python",
	} {
		if !ix.Excluded(rel) {
			t.Errorf("Excluded(%q) = false, want true", rel)
		}
	}
	for _, rel := range []string{"src/app.py", "gitinfo/g.go", "venv.txt"} {
		if ix.Excluded(rel) {
			t.Errorf("Excluded(%q) = true, want false", rel)
		}
	}
}

func TestExcludedCustomPattern(t *testing.T) {
	ix := newTestIndex(t, nil, "build/**", "*.generated.go")

	if !ix.Excluded("build/out/app.bin") {
		t.Error("build/** should exclude nested files")
	}
	if !ix.Excluded("api/types.generated.go") {
		t.Error("glob pattern should match any segment position")
	}
	if ix.Excluded("src/build.go") {
		t.Error("build/** should not match a file named build.go")
	}
}

func TestCustomExcludeDirName(t *testing.T) {
	ix := newTestIndex(t, []string{
		"dist/bundle.js",
		"src/bundle.js",
	}, "dist")

	rel, err := ix.Resolve("a/x/bundle.js")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "src/bundle.js" {
		t.Errorf("rel = %q, dist should be excluded", rel)
	}
}

// ============================================================
// ResolveNewFile & Refresh 测试
// ============================================================

func TestResolveNewFile(t *testing.T) {
	ix := newTestIndex(t, []string{"src/app.py"})

	rel, err := ix.ResolveNewFile("b/src/brand_new.py")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if rel != "src/brand_new.py" {
		t.Errorf("rel = %q", rel)
	}
}

func TestResolveNewFileOutsideRoot(t *testing.T) {
	ix := newTestIndex(t, nil)

	_, err := ix.ResolveNewFile("../../outside.txt")
	if !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestResolveNewFileOverDirectory(t *testing.T) {
	ix := newTestIndex(t, []string{"src/app.py"})

	_, err := ix.ResolveNewFile("src")
	if err == nil {
		t.Fatal("expected error when a directory occupies the target path")
	}
}

func TestRefreshPicksUpNewFiles(t *testing.T) {
	ix := newTestIndex(t, []string{"src/a.go"})

	// 构建一次索引
	if _, err := ix.Resolve("a/nowhere/a.go"); err != nil {
		t.Fatalf("warm-up resolve: %v", err)
	}

	if err := ix.WriteFile("src/b.go", []byte("package src\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// 旧缓存看不到 b.go 的基名
	if _, err := ix.Resolve("a/other/b.go"); err == nil {
		t.Log("resolved via exact path fallback")
	}

	ix.Refresh()
	rel, err := ix.Resolve("a/other/b.go")
	if err != nil {
		t.Fatalf("resolve after refresh: %v", err)
	}
	if rel != "src/b.go" {
		t.Errorf("rel = %q", rel)
	}
}

// ============================================================
// 访问层测试
// ============================================================

func TestWriteFileCreatesParents(t *testing.T) {
	ix := newTestIndex(t, nil)

	if err := ix.WriteFile("deep/nested/dir/file.txt", []byte("hi\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ix.ReadFile("deep/nested/dir/file.txt")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hi\n" {
		t.Errorf("content = %q", data)
	}
}

func TestRename(t *testing.T) {
	ix := newTestIndex(t, []string{"old/name.txt"})

	if err := ix.Rename("old/name.txt", "new/dir/name.txt"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if ix.Exists("old/name.txt") {
		t.Error("old path should be gone")
	}
	if !ix.Exists("new/dir/name.txt") {
		t.Error("new path should exist")
	}
}

func TestCopy(t *testing.T) {
	ix := newTestIndex(t, []string{"src/orig.txt"})

	if err := ix.Copy("src/orig.txt", "dup/copy.txt"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if !ix.Exists("src/orig.txt") {
		t.Error("source should survive a copy")
	}
	got, err := ix.ReadFile("dup/copy.txt")
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != "content of src/orig.txt\n" {
		t.Errorf("copy content = %q", got)
	}
}

func TestRemove(t *testing.T) {
	ix := newTestIndex(t, []string{"doomed.txt"})

	if err := ix.Remove("doomed.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ix.Exists("doomed.txt") {
		t.Error("file should be removed")
	}
}

func TestList(t *testing.T) {
	ix := newTestIndex(t, []string{"b.txt", "a.txt", ".git/config"})

	files, err := ix.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}
	if files[0] != "a.txt" || files[1] != "b.txt" {
		t.Errorf("listing should be sorted: %v", files)
	}
}
