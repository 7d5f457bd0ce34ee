package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/focusflow/internal/types"
	"github.com/hyperengineering/focusflow/internal/validation"
)

// ListGoals handles GET /api/v1/goals?view=overdue
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	var goals []types.Goal
	switch view := r.URL.Query().Get("view"); view {
	case "":
		goals = h.goals.All()
	case "overdue":
		goals = h.goals.Overdue()
	default:
		WriteProblem(w, r, http.StatusBadRequest, "view must be: overdue")
		return
	}
	if goals == nil {
		goals = []types.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

// CreateGoal handles POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var g types.Goal
	if !decodeJSON(w, r, &g) {
		return
	}
	if errs := validation.ValidateGoal(g); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Goal contains invalid fields", errs)
		return
	}
	writeJSON(w, http.StatusCreated, h.goals.Add(g))
}

// UpdateGoal handles PATCH /api/v1/goals/{id}
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var p types.GoalPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	if errs := validation.ValidateGoalPatch(p); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Patch contains invalid fields", errs)
		return
	}
	h.writeGoal(w, r)(h.goals.Update(chi.URLParam(r, "id"), p))
}

// DeleteGoal handles DELETE /api/v1/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if !h.goals.Delete(chi.URLParam(r, "id")) {
		WriteProblem(w, r, http.StatusNotFound, "Goal not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Progress *int `json:"progress"`
}

// UpdateGoalProgress handles POST /api/v1/goals/{id}/progress
func (h *Handler) UpdateGoalProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Progress == nil {
		WriteProblem(w, r, http.StatusBadRequest, "progress is required")
		return
	}
	// Out-of-range values are clamped by the store
	h.writeGoal(w, r)(h.goals.UpdateProgress(chi.URLParam(r, "id"), *req.Progress))
}

// CompleteGoalSession handles POST /api/v1/goals/{id}/sessions
func (h *Handler) CompleteGoalSession(w http.ResponseWriter, r *http.Request) {
	h.writeGoal(w, r)(h.goals.CompleteSession(chi.URLParam(r, "id")))
}

type milestoneRequest struct {
	Completed bool `json:"completed"`
}

// UpdateMilestone handles POST /api/v1/goals/{id}/milestones/{milestoneID}
func (h *Handler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.writeGoal(w, r)(h.goals.UpdateMilestone(chi.URLParam(r, "id"), chi.URLParam(r, "milestoneID"), req.Completed))
}

type financialRequest struct {
	CurrentAmount *float64 `json:"current_amount"`
}

// UpdateFinancialProgress handles POST /api/v1/goals/{id}/financial
func (h *Handler) UpdateFinancialProgress(w http.ResponseWriter, r *http.Request) {
	var req financialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentAmount == nil || *req.CurrentAmount < 0 {
		WriteProblem(w, r, http.StatusBadRequest, "current_amount must be a non-negative number")
		return
	}
	h.writeGoal(w, r)(h.goals.UpdateFinancialProgress(chi.URLParam(r, "id"), *req.CurrentAmount))
}

// goalAction adapts a single-id goal store operation to a handler.
func (h *Handler) goalAction(op func(id string) (types.Goal, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeGoal(w, r)(op(chi.URLParam(r, "id")))
	}
}

func (h *Handler) writeGoal(w http.ResponseWriter, r *http.Request) func(types.Goal, bool) {
	return func(g types.Goal, ok bool) {
		if !ok {
			WriteProblem(w, r, http.StatusNotFound, "Goal not found")
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}
