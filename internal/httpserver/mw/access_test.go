package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestAllowHosts(t *testing.T) {
	h := AllowHosts([]string{"admin.example.com", "*.internal.example.com"}, logger.Nop())(noContent)

	tests := []struct {
		host string
		want int
	}{
		{"admin.example.com", http.StatusNoContent},
		{"ADMIN.example.com:8443", http.StatusNoContent},
		{"ops.internal.example.com", http.StatusNoContent},
		{"internal.example.com", http.StatusForbidden},
		{".internal.example.com", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/infra", nil)
		r.Host = tt.host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tt.want {
			t.Errorf("Host %q = %d, want %d", tt.host, rec.Code, tt.want)
		}
	}
}

func TestAllowCIDRs(t *testing.T) {
	h := AllowCIDRs([]string{"192.0.2.0/24", "bogus"}, true, logger.Nop())(noContent)

	tests := []struct {
		name string
		xff  string
		want int
	}{
		{"remote addr allowed", "", http.StatusNoContent},
		{"forwarded outside", "203.0.113.1", http.StatusForbidden},
		{"forwarded inside", "192.0.2.200", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	open := AllowCIDRs(nil, false, logger.Nop())(noContent)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("empty allowlist = %d", rec.Code)
	}
}
