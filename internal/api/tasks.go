package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/focusflow/internal/types"
	"github.com/hyperengineering/focusflow/internal/validation"
)

// ListTasks handles GET /api/v1/tasks?view=today|completed-today|pending
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []types.Task
	switch view := r.URL.Query().Get("view"); view {
	case "":
		tasks = h.tasks.All()
	case "today":
		tasks = h.tasks.Today()
	case "completed-today":
		tasks = h.tasks.CompletedToday()
	case "pending":
		tasks = h.tasks.Pending()
	default:
		WriteProblem(w, r, http.StatusBadRequest, "view must be one of: today, completed-today, pending")
		return
	}
	if tasks == nil {
		tasks = []types.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var t types.Task
	if !decodeJSON(w, r, &t) {
		return
	}
	if errs := validation.ValidateTask(t); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Task contains invalid fields", errs)
		return
	}
	created := h.tasks.Add(t)
	h.logger.Info("task created",
		"action", "create_task",
		"task_id", created.ID,
		"user_id", UserIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, created)
}

// GetTask handles GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := h.tasks.Get(chi.URLParam(r, "id"))
	if !ok {
		WriteProblem(w, r, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTask handles PATCH /api/v1/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var p types.TaskPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	if errs := validation.ValidateTaskPatch(p); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Patch contains invalid fields", errs)
		return
	}
	t, ok := h.tasks.Update(chi.URLParam(r, "id"), p)
	if !ok {
		WriteProblem(w, r, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.tasks.Delete(id) {
		WriteProblem(w, r, http.StatusNotFound, "Task not found")
		return
	}
	h.logger.Info("task deleted",
		"action", "delete_task",
		"task_id", id,
		"user_id", UserIDFromContext(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// taskAction adapts a single-id task store operation to a handler.
func (h *Handler) taskAction(op func(id string) (types.Task, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := op(chi.URLParam(r, "id"))
		if !ok {
			WriteProblem(w, r, http.StatusNotFound, "Task not found")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// TaskSessions handles GET /api/v1/tasks/{id}/sessions
func (h *Handler) TaskSessions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.tasks.Get(id); !ok {
		WriteProblem(w, r, http.StatusNotFound, "Task not found")
		return
	}
	sessions := h.tasks.TaskFocusSessions(id)
	if sessions == nil {
		sessions = []types.FocusSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// ProductivityResponse is returned by GET /api/v1/productivity.
type ProductivityResponse struct {
	State          types.ProductivityState `json:"state"`
	CompletedToday int                     `json:"completed_today"`
	Pending        int                     `json:"pending"`
}

// Productivity handles GET /api/v1/productivity
func (h *Handler) Productivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProductivityResponse{
		State:          h.tasks.ProductivityState(),
		CompletedToday: len(h.tasks.CompletedToday()),
		Pending:        len(h.tasks.Pending()),
	})
}
