package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/index"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type slotStatus struct {
	redisstore.SlotStats
	Activity *index.SlotActivity `json:"activity,omitempty"`
}

type backupStatus struct {
	Enabled bool `json:"enabled"`
	index.BackupActivity
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Slots      map[string]slotStatus      `json:"slots"`
	Backup     backupStatus               `json:"backup"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"redis":  checkRedis(ctx, d),
			"backup": checkBackup(d),
		}

		slots := make(map[string]slotStatus, len(guard.Kinds))
		if components["redis"].OK {
			for _, k := range guard.Kinds {
				st, err := d.Store.Stats(ctx, k)
				if err != nil {
					continue
				}
				s := slotStatus{SlotStats: st}
				if d.MemoryIndex != nil {
					if a, ok := d.MemoryIndex.Slot(k.Slot); ok {
						s.Activity = &a
					}
				}
				slots[k.Name] = s
			}
		}

		resp := infraResponse{
			Mode:       determineMode(components),
			Components: components,
			Slots:      slots,
			Backup:     backupStatus{Enabled: d.Backups != nil},
		}
		if d.MemoryIndex != nil {
			resp.Backup.BackupActivity = d.MemoryIndex.Backup()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func determineMode(components map[string]componentStatus) string {
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "critical" // no slot store = no sync at all
	}
	if b, exists := components["backup"]; exists && !b.OK {
		return "degraded"
	}
	return "operational"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Mode: "down", Impact: "sync-disabled", Error: "store not initialized"}
	}
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: "down", Impact: "sync-disabled", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "optimal", Impact: "sync-enabled"}
}

func checkBackup(d deps.Deps) componentStatus {
	if d.Backups == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "no-restore-points"}
	}
	if d.MemoryIndex != nil {
		if b := d.MemoryIndex.Backup(); b.LastError != "" {
			return componentStatus{OK: false, Mode: "failing", Impact: "restore-points-stale", Error: b.LastError}
		}
	}
	return componentStatus{OK: true, Mode: "scheduled"}
}
