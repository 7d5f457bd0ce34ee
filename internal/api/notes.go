package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/focusflow/internal/types"
	"github.com/hyperengineering/focusflow/internal/validation"
)

// ListNotes handles GET /api/v1/notes?category=...
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	var notes []types.Note
	if c := r.URL.Query().Get("category"); c != "" {
		cat := types.NoteCategory(c)
		if !cat.Valid() {
			WriteProblem(w, r, http.StatusBadRequest, "Unknown note category")
			return
		}
		notes = h.notes.ByCategory(cat)
	} else {
		notes = h.notes.All()
	}
	if notes == nil {
		notes = []types.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// CreateNote handles POST /api/v1/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var n types.Note
	if !decodeJSON(w, r, &n) {
		return
	}
	if errs := validation.ValidateNote(n); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Note contains invalid fields", errs)
		return
	}
	writeJSON(w, http.StatusCreated, h.notes.Add(n))
}

// UpdateNote handles PATCH /api/v1/notes/{id}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var p types.NotePatch
	if !decodeJSON(w, r, &p) {
		return
	}
	if errs := validation.ValidateNotePatch(p); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Patch contains invalid fields", errs)
		return
	}
	n, ok := h.notes.Update(chi.URLParam(r, "id"), p)
	if !ok {
		WriteProblem(w, r, http.StatusNotFound, "Note not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/v1/notes/{id}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if !h.notes.Delete(chi.URLParam(r, "id")) {
		WriteProblem(w, r, http.StatusNotFound, "Note not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
