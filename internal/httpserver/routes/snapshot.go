package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/mw"
)

func init() { Register(Public, registerSnapshots) }

// registerSnapshots mounts GET/POST/DELETE /api/<kind> for every kind. The
// write limiter is shared by all kinds.
func registerSnapshots(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.WriteRateBurst,
		RefillPerIPPerMin: d.WriteRatePerMin,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})

	for _, k := range guard.Kinds {
		path := "/api/" + k.Name
		r.Get(path, handlers.GetSnapshot(d, k))
		r.With(limit, mw.MaxBody(d.MaxSnapshotBytes)).Post(path, handlers.PostSnapshot(d, k))
		r.With(limit).Delete(path, handlers.DeleteSnapshot(d, k))
	}
}
