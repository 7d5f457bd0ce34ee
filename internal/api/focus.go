package api

import (
	"net/http"
)

// GetFocus handles GET /api/v1/focus
func (h *Handler) GetFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.focus.Snapshot())
}

type startFocusRequest struct {
	TaskID string `json:"task_id"`
}

// StartFocus handles POST /api/v1/focus/start
func (h *Handler) StartFocus(w http.ResponseWriter, r *http.Request) {
	var req startFocusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "task_id is required")
		return
	}
	snap, err := h.focus.Start(r.Context(), req.TaskID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// StopFocus handles POST /api/v1/focus/stop. Stopping while idle succeeds.
func (h *Handler) StopFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.focus.Stop(r.Context()))
}

// DeselectFocus handles POST /api/v1/focus/deselect
func (h *Handler) DeselectFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.focus.Deselect(r.Context()))
}
