package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/focusflow/internal/types"
)

// ListInsights handles GET /api/v1/insights?all=true
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	insights := h.tasks.Insights(all)
	if insights == nil {
		insights = []types.Insight{}
	}
	writeJSON(w, http.StatusOK, insights)
}

// DismissInsight handles POST /api/v1/insights/{id}/dismiss
func (h *Handler) DismissInsight(w http.ResponseWriter, r *http.Request) {
	if !h.tasks.DismissInsight(chi.URLParam(r, "id")) {
		WriteProblem(w, r, http.StatusNotFound, "Insight not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateInsights handles POST /api/v1/insights/generate
func (h *Handler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	res, err := h.insights.Generate(r.Context())
	if err != nil {
		h.logger.Error("insight generation failed", "action", "generate_insights", "error", err)
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
