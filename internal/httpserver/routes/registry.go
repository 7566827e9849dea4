package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/mw"
)

// Registrar mounts a group of routes.
type Registrar func(r chi.Router, d deps.Deps)

// Access is the audience a group of routes is served to.
type Access int

const (
	// Public routes are reachable by every client.
	Public Access = iota
	// Internal routes require an allowed source address.
	Internal
	// Admin routes require an allowed source address and an allowed Host.
	Admin
)

type entry struct {
	access Access
	reg    Registrar
}

var registry []entry

// Register adds a route group, usually from an init function.
func Register(access Access, reg Registrar) {
	registry = append(registry, entry{access: access, reg: reg})
}

func guards(access Access, d deps.Deps) []func(http.Handler) http.Handler {
	switch access {
	case Internal:
		return []func(http.Handler) http.Handler{mw.AllowCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	case Admin:
		return []func(http.Handler) http.Handler{
			mw.AllowCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.AllowHosts(d.AllowedHosts, d.Logger),
		}
	default:
		return nil
	}
}

// RegisterAll mounts every registered group on r. Called once by the router.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		r.Group(func(r chi.Router) {
			r.Use(guards(e.access, d)...)
			e.reg(r, d)
		})
	}
}
