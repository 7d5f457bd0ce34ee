package api

import (
	"errors"
	"net/http"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// SyncStatus handles GET /api/v1/sync/status
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sync.Status(r.Context()))
}

// SyncNow handles POST /api/v1/sync. Failure details stay in the sync
// status; the response only reports that the pass failed.
func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	err := h.sync.SyncAll(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.sync.Status(r.Context()))
	case errors.Is(err, ffsync.ErrSyncInProgress), errors.Is(err, ffsync.ErrOffline):
		MapError(w, r, err)
	default:
		h.logger.Warn("manual sync failed", "action", "sync_now", "error", err)
		WriteProblem(w, r, http.StatusBadGateway, "Sync failed, see /api/v1/sync/status")
	}
}

type syncEventRequest struct {
	Event string `json:"event"`
}

// SyncEvent handles POST /api/v1/sync/events. Events mirror what a UI
// shell observes: window focus, visibility changes and connectivity.
func (h *Handler) SyncEvent(w http.ResponseWriter, r *http.Request) {
	var req syncEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch req.Event {
	case "focus":
		h.sync.WindowFocused()
	case "visible":
		h.sync.VisibilityChanged(true)
	case "hidden":
		h.sync.VisibilityChanged(false)
	case "online":
		h.sync.SetOnline(true)
	case "offline":
		h.sync.SetOnline(false)
	default:
		WriteProblem(w, r, http.StatusBadRequest, "event must be one of: focus, visible, hidden, online, offline")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
