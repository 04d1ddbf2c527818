package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"

	"mediahub/internal/ratelimit"
	"mediahub/internal/util"
	"mediahub/pkg/domain"
	"mediahub/services/media/internal/app"
	"mediahub/services/media/internal/storage"
	"mediahub/services/media/internal/store"
)

type testEnv struct {
	srv *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*Config)) testEnv {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	core, err := app.New(app.Config{Store: store.NewMemoryStore(), Blobs: blobs})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	cfg := Config{
		App:         core,
		Blobs:       blobs,
		CORSOrigins: []string{"http://localhost:3000"},
		FileBaseURL: "http://files.test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return testEnv{srv: srv}
}

type formFile struct {
	field       string
	name        string
	contentType string
	body        string
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = io.WriteString(part, file.body)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createFields() map[string]string {
	return map[string]string{
		"userId":      "u1",
		"title":       "Beach Day",
		"mediaType":   "video",
		"creatorName": "Ana",
		"tags":        "summer, beach ,",
		"isPremium":   "true",
		"price":       "150",
	}
}

func TestMediaLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, createFields(), &formFile{field: "file", name: "beach day.mp4", contentType: "video/mp4", body: "frames"})
	resp := env.do(t, http.MethodPost, "/api/media", ct, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	created := decode[domain.MediaItem](t, resp)
	if len(created.Tags) != 2 || created.Tags[1] != "beach" || !created.IsPremium || created.Price == nil || *created.Price != 150 {
		t.Fatalf("unexpected created item %+v", created)
	}
	if !strings.HasPrefix(created.SourceURL, "http://files.test/uploads/beach-day-") {
		t.Fatalf("unexpected source url %q", created.SourceURL)
	}

	resp = env.do(t, http.MethodGet, "/uploads/"+created.FileName, "", nil)
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(data) != "frames" {
		t.Fatalf("unexpected upload fetch %d %q", resp.StatusCode, data)
	}

	resp = env.do(t, http.MethodGet, "/api/media/"+created.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPut, "/api/media/"+created.ID, "application/json", strings.NewReader(`{"title":"Renamed","sourceUrl":"","tags":["x"],"isPremium":false}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d", resp.StatusCode)
	}
	updated := decode[domain.MediaItem](t, resp)
	if updated.Title != "Renamed" || updated.SourceURL != created.SourceURL || updated.IsPremium || len(updated.Tags) != 1 {
		t.Fatalf("unexpected updated item %+v", updated)
	}

	resp = env.do(t, http.MethodGet, "/api/media", "", nil)
	list := decode[[]domain.MediaItem](t, resp)
	if len(list) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list))
	}

	resp = env.do(t, http.MethodDelete, "/api/media/"+created.ID, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/media/"+created.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	errBody := decode[errorResponse](t, resp)
	if errBody.Message != "Media not found" || errBody.Code != "MEDIA_NOT_FOUND" || errBody.RequestID == "" {
		t.Fatalf("unexpected error body %+v", errBody)
	}
}

func TestCreateValidationAndUploadErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	fields := createFields()
	delete(fields, "title")
	fields["sourceUrl"] = "https://cdn.example/a.mp4"
	body, ct := multipartBody(t, fields, nil)
	resp := env.do(t, http.MethodPost, "/api/media", ct, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decode[errorResponse](t, resp); e.Code != "MEDIA_VALIDATION_FAILED" {
		t.Fatalf("unexpected code %+v", e)
	}

	body, ct = multipartBody(t, createFields(), &formFile{field: "file", name: "doc.pdf", contentType: "application/pdf", body: "%PDF"})
	resp = env.do(t, http.MethodPost, "/api/media", ct, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for pdf, got %d", resp.StatusCode)
	}
	if e := decode[errorResponse](t, resp); e.Message != "Only image and video uploads are allowed" {
		t.Fatalf("unexpected message %+v", e)
	}
}

func TestUploadSizeLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.MaxUploadBytes = 16 })
	big := strings.Repeat("x", 100)
	body, ct := multipartBody(t, createFields(), &formFile{field: "file", name: "big.mp4", contentType: "video/mp4", body: big})
	resp := env.do(t, http.MethodPost, "/api/media", ct, body)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestExportAndImportVideos(t *testing.T) {
	env := newTestEnv(t, nil)

	body, ct := multipartBody(t, nil, &formFile{field: "file", name: "backup.json", contentType: "application/json", body: `[
		{"id":"x1","title":"A","userId":"u","sourceUrl":"https://x/a.mp4","mediaType":"video","creatorName":"C"},
		{"_id":"x2","title":"B","userId":"u","sourceUrl":"https://x/b.jpg","mediaType":"image","creatorName":"C"}
	]`})
	resp := env.do(t, http.MethodPost, "/api/media/import/videos", ct, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status %d", resp.StatusCode)
	}
	res := decode[map[string]any](t, resp)
	if res["message"] != "Imported 2 videos." {
		t.Fatalf("unexpected import message %v", res)
	}

	resp = env.do(t, http.MethodGet, "/api/media/export/videos", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="videos-backup-`) {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	videos := decode[[]domain.MediaItem](t, resp)
	if len(videos) != 1 || videos[0].Title != "A" || videos[0].ID == "x1" {
		t.Fatalf("unexpected export %+v", videos)
	}

	body, ct = multipartBody(t, map[string]string{"note": "x"}, nil)
	resp = env.do(t, http.MethodPost, "/api/media/import/videos", ct, body)
	if e := decode[errorResponse](t, resp); resp.StatusCode != http.StatusBadRequest || e.Message != "No file uploaded" {
		t.Fatalf("expected missing file error, got %d %+v", resp.StatusCode, e)
	}

	body, ct = multipartBody(t, nil, &formFile{field: "file", name: "obj.json", contentType: "application/json", body: `{"a":1}`})
	resp = env.do(t, http.MethodPost, "/api/media/import/videos", ct, body)
	if e := decode[errorResponse](t, resp); resp.StatusCode != http.StatusBadRequest || e.Message != "Invalid JSON format: expected an array" {
		t.Fatalf("expected array error, got %d %+v", resp.StatusCode, e)
	}
}

func TestUploadRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(mr.Addr(), "", "test:media", 1, time.Minute)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	env := newTestEnv(t, func(cfg *Config) { cfg.Limiter = limiter })

	send := func() *http.Response {
		return env.do(t, http.MethodPost, "/api/media", "application/json", strings.NewReader(`{"userId":"u","title":"t","mediaType":"image","creatorName":"c","sourceUrl":"https://x/p.png"}`))
	}
	if resp := send(); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create status %d", resp.StatusCode)
	}
	resp := send()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if resp := env.do(t, http.MethodGet, "/api/media", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("reads are not throttled, got %d", resp.StatusCode)
	}
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) Allow(_ context.Context, key string) (bool, time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, key)
	return true, 0
}

func TestRateLimitKeyHonoursTrustedProxies(t *testing.T) {
	loopback, err := util.NewTrustedProxies([]string{"127.0.0.1", "::1"})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
	tests := []struct {
		name    string
		trusted *util.TrustedProxies
		xff     string
		want    string
	}{
		{name: "untrusted peer ignores forwarded", xff: "203.0.113.9", want: "127.0.0.1"},
		{name: "trusted peer uses forwarded client", trusted: loopback, xff: "203.0.113.9", want: "203.0.113.9"},
		{name: "trusted hops are skipped", trusted: loopback, xff: "198.51.100.4, 127.0.0.1", want: "198.51.100.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &keyRecorder{}
			env := newTestEnv(t, func(cfg *Config) {
				cfg.Limiter = rec
				cfg.TrustedProxies = tt.trusted
			})
			req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/media", strings.NewReader(`{"userId":"u","title":"t","mediaType":"image","creatorName":"c","sourceUrl":"https://x/p.png"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Forwarded-For", tt.xff)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			resp.Body.Close()
			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.keys) != 1 || rec.keys[0] != tt.want {
				t.Fatalf("limiter keys = %v, want [%s]", rec.keys, tt.want)
			}
		})
	}
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	get := func(id string) (*http.Response, errorResponse) {
		req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/media/nope", nil)
		if id != "" {
			req.Header.Set(util.RequestIDHeader, id)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		defer resp.Body.Close()
		var body errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp, body
	}

	resp, body := get("edge-7f3a.1")
	if body.RequestID != "edge-7f3a.1" || resp.Header.Get(util.RequestIDHeader) != "edge-7f3a.1" {
		t.Fatalf("expected caller id echoed, got body=%q header=%q", body.RequestID, resp.Header.Get(util.RequestIDHeader))
	}

	resp, body = get("not a valid id")
	if body.RequestID == "" || body.RequestID == "not a valid id" || body.RequestID != resp.Header.Get(util.RequestIDHeader) {
		t.Fatalf("expected replacement id, got %q", body.RequestID)
	}
}

func TestRoutingAndCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPatch, "/api/media", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/media/export/videos", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/media/a/b/c", http.StatusNotFound},
		{http.MethodGet, "/uploads/missing.mp4", http.StatusNotFound},
	}
	for _, tc := range cases {
		if resp := env.do(t, tc.method, tc.path, "", nil); resp.StatusCode != tc.status {
			t.Fatalf("%s %s: got %d want %d", tc.method, tc.path, resp.StatusCode, tc.status)
		}
	}

	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/media", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected preflight %d %q", resp.StatusCode, resp.Header.Get("Access-Control-Allow-Origin"))
	}

	req, _ = http.NewRequest(http.MethodGet, env.srv.URL+"/api/media", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("cors request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected blocked origin, got %d", resp.StatusCode)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/api/media":               "/api/media",
		"/api/media/abc":           "/api/media/:id",
		"/api/media/export/videos": "/api/media/export/videos",
		"/uploads/a.mp4":           "/uploads/:name",
		"/nope":                    "other",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
