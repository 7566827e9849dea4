package utils

import (
	"net/http/httptest"
	"testing"
)

func TestAllowlist(t *testing.T) {
	a, invalid := NewAllowlist([]string{"10.0.0.0/8", " 192.168.1.7 ", "::1", "not-an-ip", ""})
	if len(invalid) != 1 || invalid[0] != "not-an-ip" {
		t.Errorf("invalid = %v", invalid)
	}

	tests := []struct {
		addr string
		want bool
	}{
		{"10.1.2.3", true},
		{"10.1.2.3:5555", true},
		{"192.168.1.7", true},
		{"192.168.1.8", false},
		{"[::1]:80", true},
		{"::ffff:10.0.0.1", true},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := a.Contains(tt.addr); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}

	if empty, _ := NewAllowlist(nil); !empty.Empty() {
		t.Error("NewAllowlist(nil) not empty")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, false, "192.0.2.1"},
		{"headers ignored without proxy", map[string]string{"X-Forwarded-For": "203.0.113.9"}, false, "192.0.2.1"},
		{"first forwarded", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, true, "203.0.113.9"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "198.51.100.4", "X-Forwarded-For": "203.0.113.9"}, true, "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.5"}, true, "198.51.100.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil) // RemoteAddr is 192.0.2.1:1234
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
