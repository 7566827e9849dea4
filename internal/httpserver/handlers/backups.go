package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/cloudesk/internal/backup"
	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

type backupsResponse struct {
	Backups []backup.Info `json:"backups"`
}

type restoreRequest struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
}

func backupsEnabled(d deps.Deps, w http.ResponseWriter) bool {
	if d.Backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are disabled")
		return false
	}
	return true
}

// ListBackups answers GET /api/backups?kind=<kind>, newest first.
func ListBackups(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !backupsEnabled(d, w) {
			return
		}
		k, ok := guard.Lookup(r.URL.Query().Get("kind"))
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown kind")
			return
		}

		list, err := d.Backups.List(r.Context(), k)
		if err != nil {
			d.Logger.Error("backup list failed", logger.String("slot", k.Slot), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list backups")
			return
		}
		writeJSON(w, http.StatusOK, backupsResponse{Backups: list})
	}
}

// TriggerBackup queues a backup pass of every kind.
func TriggerBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !backupsEnabled(d, w) {
			return
		}
		if d.BackupTrigger == nil {
			writeError(w, http.StatusServiceUnavailable, "backup scheduler not running")
			return
		}
		d.BackupTrigger()
		d.Logger.Info("manual backup triggered via endpoint", logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, successResponse{Success: true})
	}
}

// RestoreBackup writes a backup back into its slot, bypassing the guard.
func RestoreBackup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !backupsEnabled(d, w) {
			return
		}

		var req restoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		k, ok := guard.Lookup(req.Kind)
		if !ok || req.Filename == "" {
			writeError(w, http.StatusBadRequest, "kind and filename are required")
			return
		}

		err := d.Backups.Restore(r.Context(), k, req.Filename)
		switch {
		case errors.Is(err, backup.ErrInvalidName), errors.Is(err, guard.ErrInvalidSnapshot):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, backup.ErrNotFound):
			writeError(w, http.StatusNotFound, "backup not found")
		case err != nil:
			d.Logger.Error("restore failed", logger.String("slot", k.Slot), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to restore backup")
		default:
			writeJSON(w, http.StatusOK, successResponse{Success: true})
		}
	}
}
