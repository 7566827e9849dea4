package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/handlers"
)

func init() {
	Register(Public, func(r chi.Router, d deps.Deps) { r.Get("/healthz", handlers.Healthz(d)) })
	Register(Internal, func(r chi.Router, d deps.Deps) { r.Get("/readyz", handlers.Readyz(d)) })
	Register(Admin, func(r chi.Router, d deps.Deps) { r.Get("/infra", handlers.Infra(d)) })
}
