package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/focus"
	"github.com/hyperengineering/focusflow/internal/store"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:          {"https://focusflow.dev/errors/bad-request", "Bad Request"},
	http.StatusUnauthorized:        {"https://focusflow.dev/errors/unauthorized", "Unauthorized"},
	http.StatusNotFound:            {"https://focusflow.dev/errors/not-found", "Not Found"},
	http.StatusConflict:            {"https://focusflow.dev/errors/conflict", "Conflict"},
	http.StatusUnprocessableEntity: {"https://focusflow.dev/errors/validation-error", "Validation Error"},
	http.StatusTooManyRequests:     {"https://focusflow.dev/errors/rate-limit", "Too Many Requests"},
	http.StatusInternalServerError: {"https://focusflow.dev/errors/internal-error", "Internal Server Error"},
	http.StatusBadGateway:          {"https://focusflow.dev/errors/sync-failed", "Sync Failed"},
	http.StatusServiceUnavailable:  {"https://focusflow.dev/errors/service-unavailable", "Service Unavailable"},
}

func lookupProblemType(status int) problemType {
	if pt, ok := problemTypes[status]; ok {
		return pt
	}
	return problemType{typeURI: "https://focusflow.dev/errors/unknown", title: http.StatusText(status)}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	pt := lookupProblemType(status)
	writeProblemBody(w, status, Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	pt := lookupProblemType(http.StatusUnprocessableEntity)
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: Problem{
			Type:     pt.typeURI,
			Title:    pt.title,
			Status:   http.StatusUnprocessableEntity,
			Detail:   detail,
			Instance: r.URL.Path,
		},
		Errors: errs,
	})
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapError converts domain errors to Problem Details responses.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, focus.ErrTaskNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, focus.ErrSessionActive):
		WriteProblem(w, r, http.StatusConflict, "A focus session is already running")
	case errors.Is(err, focus.ErrTaskNotSelectable):
		WriteProblem(w, r, http.StatusUnprocessableEntity, "Task is completed, cancelled or archived")
	case errors.Is(err, ffsync.ErrSyncInProgress):
		WriteProblem(w, r, http.StatusConflict, "Sync already in progress")
	case errors.Is(err, ffsync.ErrOffline):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Offline")
	case errors.Is(err, auth.ErrInvalidToken):
		WriteProblem(w, r, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, auth.ErrNoSecret):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Sign-in is not configured")
	default:
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
