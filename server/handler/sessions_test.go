package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"fkpatch/patcher"
	"fkpatch/report"
)

// ============================================================
// 会话接口测试
// ============================================================

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/fkpatch/sessions", SessionsHandler())
	r.GET("/api/fkpatch/sessions/:id", SessionDetailHandler())
	r.GET("/reports/:id", ReportPageHandler())
	return r
}

func seedSession(t *testing.T, fsys afero.Fs) string {
	t.Helper()
	sess := patcher.NewSession("/proj", false, 0.85)
	sess.Record(&patcher.FileResult{
		Path:     "pkg/a.go",
		Status:   patcher.StatusApplied,
		Language: "go",
		Hunks: []patcher.HunkDecision{
			{Index: 1, State: patcher.HunkApplied, Source: patcher.SourceAuto, Position: 10, Confidence: 1.0},
		},
	})
	if _, err := report.Write(fsys, sess.Result()); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return sess.ID
}

func TestSessionsHandlerLists(t *testing.T) {
	fsys := afero.NewMemMapFs()
	id := seedSession(t, fsys)
	Init(fsys)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/fkpatch/sessions", nil)
	testRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Code int            `json:"code"`
		Data []report.Entry `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != 0 {
		t.Errorf("code = %d, want 0", body.Code)
	}
	if len(body.Data) != 1 || body.Data[0].ID != id {
		t.Errorf("unexpected entries: %+v", body.Data)
	}
}

func TestSessionsHandlerEmptyIsArray(t *testing.T) {
	Init(afero.NewMemMapFs())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/fkpatch/sessions", nil)
	testRouter().ServeHTTP(w, req)

	var body struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body.Data) != "[]" {
		t.Errorf("empty list should serialize as [], got %s", body.Data)
	}
}

func TestSessionDetailHandler(t *testing.T) {
	fsys := afero.NewMemMapFs()
	id := seedSession(t, fsys)
	Init(fsys)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/fkpatch/sessions/"+id, nil)
	testRouter().ServeHTTP(w, req)

	var body struct {
		Code int                   `json:"code"`
		Data patcher.SessionResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != 0 || body.Data.ID != id {
		t.Errorf("code = %d, id = %q, want 0 / %q", body.Code, body.Data.ID, id)
	}
}

func TestSessionDetailHandlerRejectsBadID(t *testing.T) {
	Init(afero.NewMemMapFs())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/fkpatch/sessions/..%2F..%2Fetc", nil)
	testRouter().ServeHTTP(w, req)

	var body struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != 1 {
		t.Errorf("code = %d, want 1 for invalid session id", body.Code)
	}
}

func TestReportPageHandler(t *testing.T) {
	fsys := afero.NewMemMapFs()
	id := seedSession(t, fsys)
	Init(fsys)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/"+id, nil)
	testRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}
