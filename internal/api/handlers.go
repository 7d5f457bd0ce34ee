package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/focusflow/internal/focus"
	"github.com/hyperengineering/focusflow/internal/insight"
	"github.com/hyperengineering/focusflow/internal/state"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// SessionService is the auth session surface the API drives.
type SessionService interface {
	UserResolver
	SignIn(token string) (string, error)
	SignOut()
}

// FocusService is the focus engine surface the API drives.
type FocusService interface {
	Start(ctx context.Context, taskID string) (focus.Snapshot, error)
	Stop(ctx context.Context) focus.Snapshot
	Deselect(ctx context.Context) focus.Snapshot
	Snapshot() focus.Snapshot
}

// SyncService is the sync engine surface the API drives.
type SyncService interface {
	SyncAll(ctx context.Context) error
	Status(ctx context.Context) ffsync.Status
	WindowFocused()
	VisibilityChanged(visible bool)
	SetOnline(online bool)
}

// InsightService generates insights on demand.
type InsightService interface {
	Generate(ctx context.Context) (insight.Result, error)
}

// Dependencies groups everything the handlers need.
type Dependencies struct {
	Tasks    *state.TaskStore
	Notes    *state.NoteStore
	Goals    *state.GoalStore
	Session  SessionService
	Focus    FocusService
	Sync     SyncService
	Insights InsightService
	APIKey   string
	Version  string
}

// Handler implements the API handlers
type Handler struct {
	tasks    *state.TaskStore
	notes    *state.NoteStore
	goals    *state.GoalStore
	session  SessionService
	focus    FocusService
	sync     SyncService
	insights InsightService
	apiKey   string
	version  string
	logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Dependencies) *Handler {
	return &Handler{
		tasks:    d.Tasks,
		notes:    d.Notes,
		goals:    d.Goals,
		session:  d.Session,
		focus:    d.Focus,
		sync:     d.Sync,
		insights: d.Insights,
		apiKey:   d.APIKey,
		version:  d.Version,
		logger:   slog.Default().With("component", "api"),
	}
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status         string       `json:"status"`
	Version        string       `json:"version"`
	SignedIn       bool         `json:"signed_in"`
	SyncState      ffsync.State `json:"sync_state"`
	Online         bool         `json:"online"`
	PendingChanges int64        `json:"pending_changes"`
	Tasks          int          `json:"tasks"`
	Notes          int          `json:"notes"`
	Goals          int          `json:"goals"`
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.sync.Status(r.Context())
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		SignedIn:       h.session.CurrentUserID() != "",
		SyncState:      st.State,
		Online:         st.Online,
		PendingChanges: st.PendingChanges,
		Tasks:          h.tasks.Len(),
		Notes:          h.notes.Len(),
		Goals:          h.goals.Len(),
	})
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	UserID   string `json:"user_id,omitempty"`
	SignedIn bool   `json:"signed_in"`
}

type signInRequest struct {
	Token string `json:"token"`
}

// SignIn handles POST /api/v1/session
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		WriteProblem(w, r, http.StatusBadRequest, "token is required")
		return
	}
	uid, err := h.session.SignIn(req.Token)
	if err != nil {
		h.logger.Warn("sign-in rejected", "action", "sign_in", "error", err)
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{UserID: uid, SignedIn: true})
}

// GetSession handles GET /api/v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	uid := UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{UserID: uid, SignedIn: uid != ""})
}

// SignOut handles DELETE /api/v1/session
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.session.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}
