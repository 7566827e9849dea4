package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Allowlist matches client addresses against IPs and CIDR prefixes. A bare
// IP is stored as a single-address prefix.
type Allowlist struct {
	prefixes []netip.Prefix
}

// NewAllowlist parses entries, skipping the ones that are neither an IP nor
// a CIDR. It returns the skipped entries so callers can log them.
func NewAllowlist(entries []string) (*Allowlist, []string) {
	a := &Allowlist{}
	var invalid []string
	for _, raw := range entries {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			a.prefixes = append(a.prefixes, p.Masked())
			continue
		}
		if ip, err := netip.ParseAddr(s); err == nil {
			ip = ip.Unmap()
			a.prefixes = append(a.prefixes, netip.PrefixFrom(ip, ip.BitLen()))
			continue
		}
		invalid = append(invalid, s)
	}
	return a, invalid
}

func (a *Allowlist) Empty() bool { return len(a.prefixes) == 0 }

// Contains reports whether addr, with or without a port, is allowed.
func (a *Allowlist) Contains(addr string) bool {
	ip, err := netip.ParseAddr(StripPort(addr))
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// StripPort returns host from "host:port" or "[v6]:port"; other input is
// returned unchanged.
func StripPort(s string) string {
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

// ClientIP is the address rate limits and allowlists apply to. Forwarding
// headers are only honoured when trustProxy is set, that is when the server
// is only reachable through a reverse proxy or tunnel.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, h := range []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"} {
			v := r.Header.Get(h)
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if v = strings.TrimSpace(v); v != "" {
				return StripPort(v)
			}
		}
	}
	return StripPort(r.RemoteAddr)
}
