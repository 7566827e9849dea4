package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
)

// nullBody is the answer to a read of an empty slot.
var nullBody = []byte("null\n")

// GetSnapshot returns the stored snapshot of k verbatim, or null.
func GetSnapshot(d deps.Deps, k guard.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := d.Store.Get(r.Context(), k)
		if errors.Is(err, redisstore.ErrNotFound) {
			raw, err = nullBody, nil
		}
		if err != nil {
			d.Logger.Error("snapshot read failed", logger.String("slot", k.Slot), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read snapshot")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	}
}

// PostSnapshot offers the request body as the new snapshot of k. A guard
// rejection answers 409 with the stored snapshot.
func PostSnapshot(d deps.Deps, k guard.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "snapshot too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}
		clientTS := gjson.GetBytes(body, "updatedAt").Int()

		conflict, err := d.Store.Write(r.Context(), k, body)
		switch {
		case errors.Is(err, guard.ErrInvalidSnapshot):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, redisstore.ErrContention):
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "slot busy, retry")
			return
		case err != nil:
			d.Logger.Error("snapshot write failed", logger.String("slot", k.Slot), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save snapshot")
			return
		}

		if conflict != nil {
			if d.MemoryIndex != nil {
				d.MemoryIndex.RecordRejected(k.Slot, conflict.Reason, clientTS)
			}
			writeJSON(w, http.StatusConflict, conflict)
			return
		}

		if d.MemoryIndex != nil {
			d.MemoryIndex.RecordAccepted(k.Slot, clientTS)
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// DeleteSnapshot clears the slot of k. It is not guarded.
func DeleteSnapshot(d deps.Deps, k guard.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Delete(r.Context(), k); err != nil {
			d.Logger.Error("snapshot delete failed", logger.String("slot", k.Slot), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete snapshot")
			return
		}
		d.Logger.Info("snapshot deleted", logger.String("slot", k.Slot), logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
