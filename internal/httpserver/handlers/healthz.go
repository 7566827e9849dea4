package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Kinds         []string `json:"kinds"`
	Version       string   `json:"version,omitempty"`
	Commit        string   `json:"commit,omitempty"`
	BuildDate     string   `json:"build_date,omitempty"`
	GoVersion     string   `json:"go_version,omitempty"`
}

// Healthz reports liveness only; it never touches Redis. Clients use it to
// decide whether the server is reachable at all.
func Healthz(d deps.Deps) http.HandlerFunc {
	kinds := make([]string, 0, len(guard.Kinds))
	for _, k := range guard.Kinds {
		kinds = append(kinds, k.Name)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Kinds:         kinds,
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
		})
	}
}
