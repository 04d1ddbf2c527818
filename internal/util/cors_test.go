package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSPolicy(t *testing.T) {
	policy := NewCORSPolicy([]string{"http://localhost:3000", " http://127.0.0.1:3001/ "})
	h := policy.Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		method string
		origin string
		status int
		allow  string
	}{
		{name: "no origin", method: http.MethodGet, status: http.StatusOK},
		{name: "listed origin", method: http.MethodGet, origin: "http://localhost:3000", status: http.StatusOK, allow: "http://localhost:3000"},
		{name: "trimmed origin", method: http.MethodGet, origin: "http://127.0.0.1:3001", status: http.StatusOK, allow: "http://127.0.0.1:3001"},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:3000", status: http.StatusNoContent, allow: "http://localhost:3000"},
		{name: "blocked", method: http.MethodGet, origin: "https://evil.example", status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/media", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status mismatch: got %d want %d", rec.Code, tc.status)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.allow {
				t.Fatalf("allow-origin mismatch: got %q want %q", got, tc.allow)
			}
		})
	}
}

func TestCORSPolicyWildcard(t *testing.T) {
	if !NewCORSPolicy([]string{"*"}).Allowed("https://any.example") {
		t.Fatalf("wildcard should allow any origin")
	}
}
