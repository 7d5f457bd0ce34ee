package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/focus"
	"github.com/hyperengineering/focusflow/internal/store"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/validation"
)

func TestWriteProblem_RFC7807Body(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/abc", nil)

	WriteProblem(w, r, http.StatusNotFound, "Task not found")

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", ct)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusNotFound)
	}

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	want := Problem{
		Type:     "https://focusflow.dev/errors/not-found",
		Title:    "Not Found",
		Status:   404,
		Detail:   "Task not found",
		Instance: "/api/v1/tasks/abc",
	}
	if p != want {
		t.Errorf("problem = %+v, want %+v", p, want)
	}
}

func TestWriteProblem_UnknownStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteProblem(w, r, http.StatusTeapot, "short and stout")

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Type != "https://focusflow.dev/errors/unknown" || p.Title != http.StatusText(http.StatusTeapot) {
		t.Errorf("problem = %+v", p)
	}
}

func TestWriteProblemWithErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", nil)

	WriteProblemWithErrors(w, r, "Task contains invalid fields", []validation.ValidationError{
		{Field: "title", Message: "is required"},
		{Field: "priority", Message: "must be one of: urgent"},
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Type != "https://focusflow.dev/errors/validation-error" || len(p.Errors) != 2 {
		t.Errorf("problem = %+v", p)
	}
	if p.Errors[0].Field != "title" {
		t.Errorf("errors[0] = %+v", p.Errors[0])
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store not found", store.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound},
		{"focus task not found", focus.ErrTaskNotFound, http.StatusNotFound},
		{"session active", focus.ErrSessionActive, http.StatusConflict},
		{"not selectable", focus.ErrTaskNotSelectable, http.StatusUnprocessableEntity},
		{"sync in progress", ffsync.ErrSyncInProgress, http.StatusConflict},
		{"offline", ffsync.ErrOffline, http.StatusServiceUnavailable},
		{"invalid token", fmt.Errorf("%w: expired", auth.ErrInvalidToken), http.StatusUnauthorized},
		{"no secret", auth.ErrNoSecret, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			MapError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMapError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	MapError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	var p Problem
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Detail != "Internal Server Error" {
		t.Errorf("detail = %q, internal error leaked", p.Detail)
	}
}
