package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/mw"
)

func init() { Register(Admin, registerBackups) }

func registerBackups(r chi.Router, d deps.Deps) {
	r.Get("/api/backups", handlers.ListBackups(d))
	r.Post("/api/backups", handlers.TriggerBackup(d))
	r.With(mw.MaxBody(4<<10)).Post("/api/restore", handlers.RestoreBackup(d))
}
