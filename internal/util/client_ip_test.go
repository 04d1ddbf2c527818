package util

import (
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestClientIP(t *testing.T) {
	edge, err := NewTrustedProxies([]string{"10.0.0.0/8", "2001:db8::/32", "192.168.1.10"})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}

	tests := []struct {
		name    string
		remote  string
		xff     []string
		realIP  string
		trusted *TrustedProxies
		want    string
	}{
		{name: "direct uploader", remote: "198.51.100.10:5123", xff: []string{"203.0.113.5"}, want: "198.51.100.10"},
		{name: "ingress forwards uploader", remote: "10.1.2.3:443", xff: []string{"203.0.113.5"}, trusted: edge, want: "203.0.113.5"},
		{name: "cdn and ingress hops skipped", remote: "10.1.2.3:443", xff: []string{"203.0.113.5, 192.168.1.10"}, trusted: edge, want: "203.0.113.5"},
		{name: "repeated headers form one chain", remote: "10.1.2.3:443", xff: []string{"198.51.100.7", "10.9.9.9"}, trusted: edge, want: "198.51.100.7"},
		{name: "ipv6 proxy", remote: "[2001:db8::1]:443", xff: []string{"2001:db9::42"}, trusted: edge, want: "2001:db9::42"},
		{name: "ipv4 mapped peer", remote: "[::ffff:10.0.0.9]:443", xff: []string{"203.0.113.8"}, trusted: edge, want: "203.0.113.8"},
		{name: "x-real-ip fallback", remote: "10.1.2.3:443", xff: []string{"garbage"}, realIP: "203.0.113.77", trusted: edge, want: "203.0.113.77"},
		{name: "only proxies in chain", remote: "10.1.2.3:443", xff: []string{"10.0.0.5, 10.0.0.6"}, trusted: edge, want: "10.0.0.5"},
		{name: "unparseable peer", remote: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "http://media.test/api/media", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(req, tt.trusted); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	none, err := NewTrustedProxies([]string{" ", ""})
	if err != nil || none != nil {
		t.Fatalf("blank entries should trust nobody, got %v %v", none, err)
	}
	for _, bad := range []string{"10.0.0.0/99", "not-an-ip"} {
		if _, err := NewTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	hex32 := regexp.MustCompile(`^[0-9a-f]{32}$`)
	a, b := NewID(), NewID()
	if !hex32.MatchString(a) || !hex32.MatchString(b) {
		t.Fatalf("unexpected id format %q %q", a, b)
	}
	if a == b || a > b {
		t.Fatalf("expected increasing ids, got %q then %q", a, b)
	}
}
