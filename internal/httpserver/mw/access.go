package mw

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/MrSnakeDoc/cloudesk/internal/utils"
)

func passthrough(next http.Handler) http.Handler { return next }

// AllowCIDRs rejects clients outside allowed with 403. An empty list lets
// everyone through.
func AllowCIDRs(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	list, invalid := utils.NewAllowlist(allowed)
	for _, s := range invalid {
		log.Warn("ignoring allowlist entry", logger.String("entry", s))
	}
	if list.Empty() {
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !list.Contains(ip) {
				log.Debug("client not in allowlist", logger.String("ip", ip), logger.String("path", r.URL.Path))
				writeStatus(w, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AllowHosts rejects requests whose Host is not listed. A pattern of the
// form "*.example.com" matches any subdomain. An empty list lets everything
// through.
func AllowHosts(hosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(hosts) == 0 {
		return passthrough
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(utils.StripPort(r.Host))
			for _, pattern := range hosts {
				if hostMatches(host, strings.ToLower(pattern)) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Debug("host not allowed", logger.String("host", r.Host), logger.String("path", r.URL.Path))
			writeStatus(w, http.StatusForbidden)
		})
	}
}

func hostMatches(host, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return host == pattern
}

// writeStatus answers with the same {"error": ...} body as the handlers.
func writeStatus(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", strings.ToLower(http.StatusText(code)))
}
