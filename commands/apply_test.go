package commands

import (
	"context"
	"strings"
	"testing"

	"fkpatch/mdiff"
)

// ============================================================
// 补丁输入解析测试
// ============================================================

func TestParsePatchInputsSingle(t *testing.T) {
	inputs := []patchInput{
		{label: "a.diff", text: "--- a/f.txt\n+++ b/f.txt\n@@ -1,1 +1,1 @@\n-x\n+y\n"},
	}
	mfd, err := parsePatchInputs(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(mfd.Files) != 1 {
		t.Errorf("expected 1 file, got %d", len(mfd.Files))
	}
}

func TestParsePatchInputsStat(t *testing.T) {
	inputs := []patchInput{
		{label: "a.diff", text: "--- a/f.txt\n+++ b/f.txt\n@@ -1,2 +1,2 @@\n-x\n+y\n ctx\n"},
		{label: "b.diff", text: "--- a/g.txt\n+++ b/g.txt\n@@ -1,1 +1,2 @@\n x\n+z\n"},
	}
	mfd, err := parsePatchInputs(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	// apply 在执行前展示的补丁规模
	st := mdiff.Stat(mfd)
	if st.FilesChanged != 2 || st.Insertions != 2 || st.Deletions != 1 {
		t.Errorf("stat = %+v, want 2 files / 2 insertions / 1 deletion", st)
	}
	if got := st.String(); got != "2 files changed, 2 insertions(+), 1 deletion(-)" {
		t.Errorf("stat string = %q", got)
	}
}

func TestParsePatchInputsMergeKeepsOrder(t *testing.T) {
	inputs := []patchInput{
		{label: "first.diff", text: "--- a/first.txt\n+++ b/first.txt\n@@ -1,1 +1,1 @@\n-x\n+y\n"},
		{label: "second.diff", text: "--- a/second.txt\n+++ b/second.txt\n@@ -1,1 +1,1 @@\n-x\n+y\n"},
	}
	mfd, err := parsePatchInputs(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(mfd.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(mfd.Files))
	}
	if !strings.Contains(mfd.Files[0].NewName, "first.txt") {
		t.Errorf("merge order broken, first file is %q", mfd.Files[0].NewName)
	}
	if !strings.Contains(mfd.Files[1].NewName, "second.txt") {
		t.Errorf("merge order broken, second file is %q", mfd.Files[1].NewName)
	}
}

func TestParsePatchInputsStripsProse(t *testing.T) {
	inputs := []patchInput{
		{label: "chat", text: "Here is the fix:\n\ndiff --git a/f.go b/f.go\n--- a/f.go\n+++ b/f.go\n@@ -1,1 +1,1 @@\n-old\n+new\n"},
	}
	mfd, err := parsePatchInputs(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(mfd.Files) != 1 {
		t.Errorf("expected 1 file, got %d", len(mfd.Files))
	}
}

func TestParsePatchInputsErrorNamesSource(t *testing.T) {
	inputs := []patchInput{
		{label: "good.diff", text: "--- a/f.txt\n+++ b/f.txt\n@@ -1,1 +1,1 @@\n-x\n+y\n"},
		{label: "bad.diff", text: "not a patch at all\n"},
	}
	_, err := parsePatchInputs(context.Background(), inputs)
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
	if !strings.Contains(err.Error(), "bad.diff") {
		t.Errorf("error should name the failing input, got %q", err)
	}
}

func TestParsePatchInputsEmpty(t *testing.T) {
	if _, err := parsePatchInputs(context.Background(), nil); err == nil {
		t.Fatal("expected error when no inputs produce file diffs")
	}
}

// ============================================================
// 会话取消状态测试
// ============================================================

func TestApplyStateCancelOnce(t *testing.T) {
	calls := 0
	state := &applyState{}
	state.Start(func() { calls++ })

	if !state.Cancel() {
		t.Fatal("first cancel should be cooperative")
	}
	if calls != 1 {
		t.Fatalf("cancel func called %d times, want 1", calls)
	}
	if state.Cancel() {
		t.Error("second cancel should report already cancelling")
	}
	if calls != 1 {
		t.Errorf("cancel func called %d times after repeat, want 1", calls)
	}
}

func TestApplyStateCancelAfterEnd(t *testing.T) {
	state := &applyState{}
	state.Start(func() {})
	state.End()
	if state.Cancel() {
		t.Error("cancel after session end should be a no-op")
	}
}
