package http

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"claim-evaluator/internal/bootstrap"
	"claim-evaluator/internal/config"
	"claim-evaluator/internal/progress"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.App.Env = "test"
	cfg.App.GinMode = gin.TestMode
	cfg.App.CORSOrigins = nil
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLitePath = ":memory:"
	cfg.Redis.Addr = ""
	cfg.RabbitMQ.URL = ""
	cfg.Storage.Driver = config.StorageLocal
	cfg.Upload.Dir = t.TempDir()
	cfg.Documents.Directory = t.TempDir()
	cfg.Documents.ScanDirectories = nil
	cfg.RateLimit.Backend = config.RateLimitMemory
	cfg.LLM.Strategy = config.StrategyRules
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *bootstrap.App) {
	t.Helper()
	app, err := bootstrap.NewWithConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return NewRouter(app), app
}

func writeDocuments(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

type part struct {
	filename    string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, parts ...part) *nethttp.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, p.filename))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pw.Write(p.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(nethttp.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func do(router *gin.Engine, req *nethttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *nethttp.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return do(router, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func listDocuments(t *testing.T, router *gin.Engine) []any {
	t.Helper()
	rec := doJSON(router, nethttp.MethodGet, "/api/documents", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("list documents: %d %s", rec.Code, rec.Body.String())
	}
	docs, _ := decode(t, rec)["documents"].([]any)
	return docs
}

func TestHealthAndHeaders(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := doJSON(router, nethttp.MethodGet, "/api/health", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "ClaimEvaluator-Integrated API is running" {
		t.Fatalf("message = %v", msg)
	}
	if rec.Header().Get("X-Session-ID") == "" {
		t.Fatal("missing X-Session-ID")
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Cache-Control = %q", got)
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/api/health", nil)
	req.Header.Set("X-Session-ID", "dashboard-1")
	if got := do(router, req).Header().Get("X-Session-ID"); got != "dashboard-1" {
		t.Fatalf("session id not echoed: %q", got)
	}

	rec = doJSON(router, nethttp.MethodGet, "/healthz", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("healthz status = %d: %s", rec.Code, rec.Body.String())
	}
	deps, _ := decode(t, rec)["dependencies"].(map[string]any)
	if _, ok := deps["database"]; !ok {
		t.Fatalf("dependencies = %v", deps)
	}
	if _, ok := deps["redis"]; ok {
		t.Fatal("redis reported although not configured")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := do(router, multipartRequest(t,
		part{filename: "claim.txt", contentType: "text/plain", body: []byte("Escalation claim Rs. 5 lakh")},
		part{filename: "photo.png", contentType: "image/png", body: []byte{0x89, 'P', 'N', 'G'}},
	))
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	msg, _ := decode(t, rec)["message"].(string)
	if !strings.Contains(msg, "Unsupported file type: image/png") {
		t.Fatalf("message = %q", msg)
	}
	if docs := listDocuments(t, router); len(docs) != 0 {
		t.Fatalf("documents created: %v", docs)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSizeMB = 1
	router, _ := newTestRouter(t, cfg)

	rec := do(router, multipartRequest(t,
		part{filename: "big.txt", contentType: "text/plain", body: bytes.Repeat([]byte("a"), 1<<20+1)},
	))
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	msg, _ := decode(t, rec)["message"].(string)
	if msg != "File too large. Maximum size is 1MB." {
		t.Fatalf("message = %q", msg)
	}
	if docs := listDocuments(t, router); len(docs) != 0 {
		t.Fatalf("documents created: %v", docs)
	}
}

func TestUploadCapsRequestBody(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFileSizeMB = 1
	cfg.Upload.MaxFiles = 1
	router, _ := newTestRouter(t, cfg)

	// Every part is under the per-file limit; together they exceed the body cap.
	parts := make([]part, 3)
	for i := range parts {
		parts[i] = part{filename: fmt.Sprintf("p%d.txt", i), contentType: "text/plain", body: bytes.Repeat([]byte("a"), 900<<10)}
	}
	for _, length := range []string{"declared", "unknown"} {
		req := multipartRequest(t, parts...)
		if length == "unknown" {
			req.ContentLength = -1
		}
		rec := do(router, req)
		if rec.Code != nethttp.StatusBadRequest {
			t.Fatalf("%s length: status = %d", length, rec.Code)
		}
		if msg := decode(t, rec)["message"]; msg != "File too large. Maximum size is 1MB." {
			t.Fatalf("%s length: message = %v", length, msg)
		}
	}
	if docs := listDocuments(t, router); len(docs) != 0 {
		t.Fatalf("documents created: %v", docs)
	}
}

func TestUploadRejectsTooManyFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upload.MaxFiles = 2
	router, _ := newTestRouter(t, cfg)

	small := part{filename: "a.txt", contentType: "text/plain", body: []byte("Escalation claim Rs. 1 lakh")}
	rec := do(router, multipartRequest(t, small, small, small))
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "Too many files. Maximum is 2 files per upload." {
		t.Fatalf("message = %v", msg)
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := do(router, multipartRequest(t))
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "No files uploaded" {
		t.Fatalf("message = %v", msg)
	}
}

func TestUploadThenAnalyze(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := do(router, multipartRequest(t,
		part{filename: "claim.txt", contentType: "text/plain", body: []byte("Price escalation claim Rs. 12,00,000 as per Annexure A")},
	))
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	docs, _ := decode(t, rec)["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("documents = %v", docs)
	}
	doc := docs[0].(map[string]any)
	if doc["parseStatus"] != "success" || doc["originalName"] != "claim.txt" {
		t.Fatalf("document = %v", doc)
	}

	body := fmt.Sprintf(`{"documentIds":[%q]}`, doc["id"])
	rec = doJSON(router, nethttp.MethodPost, "/api/analysis/create", body)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=300" {
		t.Fatalf("Cache-Control = %q", got)
	}
	out := decode(t, rec)
	results, _ := out["results"].(map[string]any)
	if results["totalCurrentValue"] != float64(1200000) {
		t.Fatalf("totalCurrentValue = %v", results["totalCurrentValue"])
	}
	created, _ := out["analysis"].(map[string]any)

	rec = doJSON(router, nethttp.MethodGet, "/api/analysis/latest", "")
	latest, _ := decode(t, rec)["analysis"].(map[string]any)
	if latest == nil || latest["id"] != created["id"] {
		t.Fatalf("latest = %v, want id %v", latest, created["id"])
	}
}

func TestAnalysisCreateValidation(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "empty ids", body: `{"documentIds":[]}`, status: nethttp.StatusBadRequest, message: "Document IDs are required"},
		{name: "missing field", body: `{}`, status: nethttp.StatusBadRequest, message: "Document IDs are required"},
		{name: "malformed", body: `{"documentIds":`, status: nethttp.StatusBadRequest, message: "Document IDs are required"},
		{name: "unknown ids", body: `{"documentIds":["nope"]}`, status: nethttp.StatusNotFound, message: "No documents found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(router, nethttp.MethodPost, "/api/analysis/create", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if msg := decode(t, rec)["message"]; msg != tt.message {
				t.Fatalf("message = %v", msg)
			}
		})
	}
}

func TestLatestAnalysisIsNullInitially(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := doJSON(router, nethttp.MethodGet, "/api/analysis/latest", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if v, ok := out["analysis"]; !ok || v != nil {
		t.Fatalf("analysis = %v", out)
	}
}

func TestBatchAnalyzeWithoutDocuments(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(t))

	rec := doJSON(router, nethttp.MethodPost, "/api/analysis/batch-analyze", "")
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoadSampleBatchContinuesPastCorruptFile(t *testing.T) {
	cfg := testConfig(t)
	writeDocuments(t, cfg.Documents.Directory, map[string]string{
		"broken.pdf":    "this is not a pdf",
		"statement.txt": "Idle machinery claim Rs. 3 lakh",
		".hidden.txt":   "ignored",
	})
	router, _ := newTestRouter(t, cfg)

	rec := doJSON(router, nethttp.MethodPost, "/api/documents/load-sample-batch", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	processed, _ := out["processed"].(map[string]any)
	if processed["failed"].(float64) < 1 || processed["success"] != float64(1) {
		t.Fatalf("processed = %v", processed)
	}
	if out["totalFiles"] != float64(2) {
		t.Fatalf("totalFiles = %v", out["totalFiles"])
	}
	if docs, _ := out["documents"].([]any); len(docs) != 2 {
		t.Fatalf("documents = %v", docs)
	}

	rec = doJSON(router, nethttp.MethodPost, "/api/analysis/batch-analyze", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("batch status = %d: %s", rec.Code, rec.Body.String())
	}
	out = decode(t, rec)
	if out["documentsAnalyzed"] != float64(1) || out["message"] != "Successfully analyzed 1 documents" {
		t.Fatalf("batch = %v", out)
	}
}

func TestLoadSampleBatchMissingFolder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Documents.Directory = filepath.Join(t.TempDir(), "absent")
	router, _ := newTestRouter(t, cfg)

	for _, path := range []string{"/api/documents/load-sample-batch", "/api/quick-analysis", "/api/comprehensive-analysis"} {
		rec := doJSON(router, nethttp.MethodPost, path, "")
		if rec.Code != nethttp.StatusNotFound {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
	if rec := doJSON(router, nethttp.MethodGet, "/api/files/latest", ""); rec.Code != nethttp.StatusNotFound {
		t.Fatalf("files/latest status = %d", rec.Code)
	}
}

func TestQuickAndComprehensiveAnalysis(t *testing.T) {
	cfg := testConfig(t)
	writeDocuments(t, cfg.Documents.Directory, map[string]string{
		"a.txt": "Extension of time claim Rs. 10 lakh",
		"b.txt": "Loss of profit claim Rs. 2 lakh",
	})
	router, _ := newTestRouter(t, cfg)

	rec := doJSON(router, nethttp.MethodPost, "/api/quick-analysis", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("quick status = %d: %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["success"] != true || out["documentsProcessed"] != float64(2) {
		t.Fatalf("quick = %v", out)
	}
	if out["message"] != "Comprehensive analysis completed on 2 documents (all documents in folder processed)" {
		t.Fatalf("message = %v", out["message"])
	}

	rec = doJSON(router, nethttp.MethodPost, "/api/comprehensive-analysis", "")
	out = decode(t, rec)
	if out["totalFilesFound"] != float64(2) || out["validFiles"] != float64(2) || out["failedDocuments"] != float64(0) {
		t.Fatalf("comprehensive = %v", out)
	}

	// Folder analyses do not store anything.
	rec = doJSON(router, nethttp.MethodGet, "/api/analysis/latest", "")
	if v := decode(t, rec)["analysis"]; v != nil {
		t.Fatalf("latest = %v", v)
	}
}

func TestFilesEndpoints(t *testing.T) {
	cfg := testConfig(t)
	writeDocuments(t, cfg.Documents.Directory, map[string]string{
		"claim.pdf": "%PDF-",
		"notes.bin": "x",
	})
	extra := t.TempDir()
	writeDocuments(t, extra, map[string]string{"scan.txt": "hello"})
	router, _ := newTestRouter(t, cfg)

	rec := doJSON(router, nethttp.MethodGet, "/api/files/latest", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decode(t, rec)
	if out["totalFiles"] != float64(2) || out["supportedFiles"] != float64(1) {
		t.Fatalf("listing = %v", out)
	}

	rec = doJSON(router, nethttp.MethodGet, "/api/files/pc-scan?directories="+extra+"&limit=10&fileTypes=.txt", "")
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("scan status = %d", rec.Code)
	}
	out = decode(t, rec)
	if out["totalFound"] != float64(1) {
		t.Fatalf("scan = %v", out)
	}
	dirs, _ := out["directoriesScanned"].([]any)
	if len(dirs) != 1 || dirs[0] != extra {
		t.Fatalf("directoriesScanned = %v", dirs)
	}
}

func TestRateLimitRecoversAfterWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.WindowMS = 200
	router, _ := newTestRouter(t, cfg)

	for i := 0; i < 2; i++ {
		if rec := doJSON(router, nethttp.MethodGet, "/api/health", ""); rec.Code != nethttp.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := doJSON(router, nethttp.MethodGet, "/api/health", "")
	if rec.Code != nethttp.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	out := decode(t, rec)
	if out["type"] != "general_throttle" || out["retryAfter"].(float64) < 1 {
		t.Fatalf("throttle body = %v", out)
	}
	if out["message"] != "Rate limit exceeded for general requests. Please try again later." {
		t.Fatalf("message = %v", out["message"])
	}

	// The analysis bucket is tracked separately: floor(2*0.3) rounds up to 1.
	if rec := doJSON(router, nethttp.MethodGet, "/api/analysis/latest", ""); rec.Code != nethttp.StatusOK {
		t.Fatalf("analysis status = %d", rec.Code)
	}
	rec = doJSON(router, nethttp.MethodGet, "/api/analysis/latest", "")
	if rec.Code != nethttp.StatusTooManyRequests || decode(t, rec)["type"] != "ai_throttle" {
		t.Fatalf("analysis throttle = %d %s", rec.Code, rec.Body.String())
	}
	if msg := decode(t, rec)["message"]; msg != "Rate limit exceeded for AI requests. Please try again later." {
		t.Fatalf("analysis message = %v", msg)
	}

	time.Sleep(300 * time.Millisecond)
	if rec := doJSON(router, nethttp.MethodGet, "/api/health", ""); rec.Code != nethttp.StatusOK {
		t.Fatalf("after window status = %d", rec.Code)
	}
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	router, _ := newTestRouter(t, cfg)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(nethttp.MethodGet, "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := do(router, req)
		want := nethttp.StatusOK
		if i >= 2 {
			want = nethttp.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestRateLimitHonorsForwardedForFromTrustedProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Requests = 2
	cfg.App.TrustedProxies = []string{"203.0.113.0/24"}
	router, _ := newTestRouter(t, cfg)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(nethttp.MethodGet, "/api/health", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		if rec := do(router, req); rec.Code != nethttp.StatusOK {
			t.Fatalf("client %d status = %d", i, rec.Code)
		}
	}
}

func TestProgressWebSocketReceivesAnalysisEvents(t *testing.T) {
	cfg := testConfig(t)
	writeDocuments(t, cfg.Documents.Directory, map[string]string{
		"a.txt": "Overheads claim Rs. 2 lakh",
	})
	router, app := newTestRouter(t, cfg)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/analysis-progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.Hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := nethttp.Post(server.URL+"/api/quick-analysis", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("quick status = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var last map[string]any
	for {
		var frame progress.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v (last %v)", err, last)
		}
		if frame.Type != "progress" {
			t.Fatalf("frame type = %q", frame.Type)
		}
		last, _ = frame.Data.(map[string]any)
		if last["progress"] == float64(100) {
			break
		}
	}
	if last["stage"] != "complete" {
		t.Fatalf("final event = %v", last)
	}
}
