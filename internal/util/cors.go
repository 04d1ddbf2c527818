package util

import (
	"net/http"
	"slices"
	"strings"
)

// CORSPolicy allows cross-origin calls from an explicit origin list; "*" allows any.
type CORSPolicy struct {
	origins []string
}

func NewCORSPolicy(origins []string) *CORSPolicy {
	clean := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			clean = append(clean, o)
		}
	}
	return &CORSPolicy{origins: clean}
}

// Allowed reports whether origin may call the API. Requests without an Origin are always allowed.
func (p *CORSPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	return slices.Contains(p.origins, "*") || slices.Contains(p.origins, origin)
}

// Wrap applies the policy. Disallowed origins are rejected with 403.
func (p *CORSPolicy) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if !p.Allowed(origin) {
			LoggerFromContext(r.Context()).Warn("cors blocked", "origin", origin)
			http.Error(w, "Not allowed by CORS", http.StatusForbidden)
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, Content-Disposition")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
