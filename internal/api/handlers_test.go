package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/focus"
	"github.com/hyperengineering/focusflow/internal/insight"
	"github.com/hyperengineering/focusflow/internal/state"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// --- Mock Implementations for Testing ---

type mockSession struct {
	userID    string
	signInErr error
	signOuts  int
}

func (m *mockSession) CurrentUserID() string { return m.userID }

func (m *mockSession) SignIn(token string) (string, error) {
	if m.signInErr != nil {
		return "", m.signInErr
	}
	m.userID = "user-" + token
	return m.userID, nil
}

func (m *mockSession) SignOut() {
	m.signOuts++
	m.userID = ""
}

type mockFocus struct {
	snap      focus.Snapshot
	startErr  error
	lastTask  string
	stopCalls int
	deselects int
}

func (m *mockFocus) Start(ctx context.Context, taskID string) (focus.Snapshot, error) {
	m.lastTask = taskID
	if m.startErr != nil {
		return m.snap, m.startErr
	}
	m.snap = focus.Snapshot{Phase: focus.PhaseFocus, TaskID: taskID, PlannedMinutes: 25, RemainingSeconds: 1500}
	return m.snap, nil
}

func (m *mockFocus) Stop(ctx context.Context) focus.Snapshot {
	m.stopCalls++
	m.snap = focus.Snapshot{Phase: focus.PhaseIdle}
	return m.snap
}

func (m *mockFocus) Deselect(ctx context.Context) focus.Snapshot {
	m.deselects++
	m.snap = focus.Snapshot{Phase: focus.PhaseIdle}
	return m.snap
}

func (m *mockFocus) Snapshot() focus.Snapshot { return m.snap }

type mockSync struct {
	err       error
	status    ffsync.Status
	syncCalls int
	events    []string
}

func (m *mockSync) SyncAll(ctx context.Context) error {
	m.syncCalls++
	return m.err
}

func (m *mockSync) Status(ctx context.Context) ffsync.Status { return m.status }
func (m *mockSync) WindowFocused()                          { m.events = append(m.events, "focus") }

func (m *mockSync) VisibilityChanged(visible bool) {
	if visible {
		m.events = append(m.events, "visible")
	} else {
		m.events = append(m.events, "hidden")
	}
}

func (m *mockSync) SetOnline(online bool) {
	if online {
		m.events = append(m.events, "online")
	} else {
		m.events = append(m.events, "offline")
	}
}

type mockInsights struct {
	res insight.Result
	err error
}

func (m *mockInsights) Generate(ctx context.Context) (insight.Result, error) {
	return m.res, m.err
}

// --- Test harness ---

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	router   *chi.Mux
	tasks    *state.TaskStore
	notes    *state.NoteStore
	goals    *state.GoalStore
	session  *mockSession
	focus    *mockFocus
	sync     *mockSync
	insights *mockInsights
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	captureLogs(t)
	opts := state.Options{Now: func() time.Time { return testNow }, Location: time.UTC}
	a := &testAPI{
		tasks:    state.NewTaskStore(opts),
		notes:    state.NewNoteStore(opts),
		goals:    state.NewGoalStore(opts),
		session:  &mockSession{},
		focus:    &mockFocus{snap: focus.Snapshot{Phase: focus.PhaseIdle}},
		sync:     &mockSync{status: ffsync.Status{State: ffsync.StateIdle, Online: true}},
		insights: &mockInsights{},
	}
	a.router = NewRouter(NewHandler(Dependencies{
		Tasks:    a.tasks,
		Notes:    a.notes,
		Goals:    a.goals,
		Session:  a.session,
		Focus:    a.focus,
		Sync:     a.sync,
		Insights: a.insights,
		APIKey:   testAPIKey,
		Version:  "1.2.3",
	}))
	return a
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

// --- Health & session ---

func TestHealth_NoAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	a.tasks.Add(types.Task{Title: "one"})
	a.sync.status.PendingChanges = 4

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK)
	h := decode[HealthResponse](t, w)
	if h.Status != "healthy" || h.Version != "1.2.3" || h.Tasks != 1 || h.PendingChanges != 4 || h.SignedIn {
		t.Errorf("health = %+v", h)
	}
}

func TestProtectedRoutes_RequireAPIKey(t *testing.T) {
	a := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusUnauthorized)
}

func TestSession_SignInGetSignOut(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/v1/session", map[string]string{"token": "abc"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[SessionResponse](t, w); got.UserID != "user-abc" || !got.SignedIn {
		t.Errorf("sign in = %+v", got)
	}

	w = a.do(http.MethodGet, "/api/v1/session", nil)
	if got := decode[SessionResponse](t, w); got.UserID != "user-abc" {
		t.Errorf("session = %+v", got)
	}

	w = a.do(http.MethodDelete, "/api/v1/session", nil)
	expectStatus(t, w, http.StatusNoContent)
	if a.session.signOuts != 1 {
		t.Errorf("signOuts = %d", a.session.signOuts)
	}
}

func TestSession_SignInErrors(t *testing.T) {
	a := newTestAPI(t)

	expectStatus(t, a.do(http.MethodPost, "/api/v1/session", map[string]string{}), http.StatusBadRequest)
	expectStatus(t, a.do(http.MethodPost, "/api/v1/session", "{not json"), http.StatusBadRequest)

	a.session.signInErr = auth.ErrInvalidToken
	expectStatus(t, a.do(http.MethodPost, "/api/v1/session", map[string]string{"token": "bad"}), http.StatusUnauthorized)
}

// --- Tasks ---

func TestTasks_CreateGetUpdateDelete(t *testing.T) {
	a := newTestAPI(t)

	// Given: A created task
	w := a.do(http.MethodPost, "/api/v1/tasks", map[string]any{"title": "Write report", "priority": "urgent"})
	expectStatus(t, w, http.StatusCreated)
	created := decode[types.Task](t, w)
	if created.ID == "" || created.Status != types.StatusPending || !created.CreatedAt.Equal(testNow) {
		t.Fatalf("created = %+v", created)
	}

	// When: It is fetched and patched
	expectStatus(t, a.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil), http.StatusOK)
	w = a.do(http.MethodPatch, "/api/v1/tasks/"+created.ID, map[string]any{"status": "completed"})
	expectStatus(t, w, http.StatusOK)

	// Then: Completion time follows status
	updated := decode[types.Task](t, w)
	if updated.Status != types.StatusCompleted || updated.CompletedAt == nil {
		t.Errorf("updated = %+v", updated)
	}

	// And: Delete removes it
	expectStatus(t, a.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil), http.StatusNoContent)
	expectStatus(t, a.do(http.MethodGet, "/api/v1/tasks/"+created.ID, nil), http.StatusNotFound)
	expectStatus(t, a.do(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil), http.StatusNotFound)
}

func TestTasks_CreateValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/v1/tasks", map[string]any{"title": " ", "priority": "someday"})

	expectStatus(t, w, http.StatusUnprocessableEntity)
	p := decode[ProblemWithErrors](t, w)
	if len(p.Errors) != 2 {
		t.Errorf("errors = %+v", p.Errors)
	}
	if a.tasks.Len() != 0 {
		t.Error("invalid task was stored")
	}
}

func TestTasks_UnknownFieldRejected(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/v1/tasks", `{"title":"x","colour":"red"}`)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestTasks_ListViews(t *testing.T) {
	a := newTestAPI(t)
	done := a.tasks.Add(types.Task{Title: "done"})
	a.tasks.Complete(done.ID)
	a.tasks.Add(types.Task{Title: "open"})

	tests := []struct {
		view string
		want int
	}{
		{"", 2},
		{"today", 2},
		{"completed-today", 1},
		{"pending", 1},
	}
	for _, tt := range tests {
		t.Run("view="+tt.view, func(t *testing.T) {
			w := a.do(http.MethodGet, "/api/v1/tasks?view="+tt.view, nil)
			expectStatus(t, w, http.StatusOK)
			if got := decode[[]types.Task](t, w); len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}

	expectStatus(t, a.do(http.MethodGet, "/api/v1/tasks?view=someday", nil), http.StatusBadRequest)
}

func TestTasks_EmptyListIsArray(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/v1/tasks", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestTasks_LifecycleActions(t *testing.T) {
	a := newTestAPI(t)
	task := a.tasks.Add(types.Task{Title: "x"})

	w := a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/archive", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[types.Task](t, w); got.Lifecycle != types.LifecycleArchived {
		t.Errorf("lifecycle = %s", got.Lifecycle)
	}

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/reactivate", nil)
	if got := decode[types.Task](t, w); got.Lifecycle != types.LifecycleActive {
		t.Errorf("lifecycle = %s", got.Lifecycle)
	}

	w = a.do(http.MethodPost, "/api/v1/tasks/"+task.ID+"/complete", nil)
	if got := decode[types.Task](t, w); got.Status != types.StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}

	expectStatus(t, a.do(http.MethodPost, "/api/v1/tasks/missing/pause", nil), http.StatusNotFound)
}

func TestTasks_Sessions(t *testing.T) {
	a := newTestAPI(t)
	task := a.tasks.Add(types.Task{Title: "x"})
	a.tasks.StartFocusSession(task.ID, 25, 0, types.MoodNeutral)

	w := a.do(http.MethodGet, "/api/v1/tasks/"+task.ID+"/sessions", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[[]types.FocusSession](t, w); len(got) != 1 || got[0].PlannedMinutes != 25 {
		t.Errorf("sessions = %+v", got)
	}
	expectStatus(t, a.do(http.MethodGet, "/api/v1/tasks/missing/sessions", nil), http.StatusNotFound)
}

func TestProductivity(t *testing.T) {
	a := newTestAPI(t)
	for i := 0; i < 3; i++ {
		tk := a.tasks.Add(types.Task{Title: "t"})
		a.tasks.Complete(tk.ID)
	}

	w := a.do(http.MethodGet, "/api/v1/productivity", nil)
	got := decode[ProductivityResponse](t, w)
	if got.State != types.ProductivityProductive || got.CompletedToday != 3 {
		t.Errorf("productivity = %+v", got)
	}
}

// --- Notes ---

func TestNotes_CRUDAndCategoryFilter(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/v1/notes", map[string]any{"content": "buy milk", "category": "todo"})
	expectStatus(t, w, http.StatusCreated)
	note := decode[types.Note](t, w)
	a.do(http.MethodPost, "/api/v1/notes", map[string]any{"content": "idea", "category": "ideas"})

	w = a.do(http.MethodGet, "/api/v1/notes?category=todo", nil)
	if got := decode[[]types.Note](t, w); len(got) != 1 || got[0].ID != note.ID {
		t.Errorf("filtered = %+v", got)
	}
	expectStatus(t, a.do(http.MethodGet, "/api/v1/notes?category=journal", nil), http.StatusBadRequest)

	w = a.do(http.MethodPatch, "/api/v1/notes/"+note.ID, map[string]any{"title": "Groceries"})
	if got := decode[types.Note](t, w); got.Title != "Groceries" {
		t.Errorf("patched = %+v", got)
	}

	expectStatus(t, a.do(http.MethodPatch, "/api/v1/notes/"+note.ID, map[string]any{"category": "journal"}), http.StatusUnprocessableEntity)
	expectStatus(t, a.do(http.MethodDelete, "/api/v1/notes/"+note.ID, nil), http.StatusNoContent)
	expectStatus(t, a.do(http.MethodPatch, "/api/v1/notes/"+note.ID, map[string]any{"title": "x"}), http.StatusNotFound)
}

// --- Goals ---

func TestGoals_ProgressDerivesCompletion(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(http.MethodPost, "/api/v1/goals", map[string]any{"title": "Read 12 books", "category": "education"})
	expectStatus(t, w, http.StatusCreated)
	goal := decode[types.Goal](t, w)

	w = a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/progress", map[string]any{"progress": 150})
	expectStatus(t, w, http.StatusOK)
	got := decode[types.Goal](t, w)
	if got.Progress != 100 || !got.Completed || got.CompletedAt == nil {
		t.Errorf("goal = %+v", got)
	}

	expectStatus(t, a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/progress", map[string]any{}), http.StatusBadRequest)
	expectStatus(t, a.do(http.MethodPost, "/api/v1/goals/missing/progress", map[string]any{"progress": 1}), http.StatusNotFound)
}

func TestGoals_MilestonesAndFinancial(t *testing.T) {
	a := newTestAPI(t)
	goal := a.goals.Add(types.Goal{
		Title:      "Save",
		Category:   types.GoalCategoryFinancial,
		GoalPlan:   types.GoalPlan{TargetAmount: 1000},
		Milestones: []types.Milestone{{ID: "m1", Title: "first"}, {ID: "m2", Title: "second"}},
	})

	w := a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/milestones/m1", map[string]any{"completed": true})
	expectStatus(t, w, http.StatusOK)
	if got := decode[types.Goal](t, w); !got.Milestones[0].Completed {
		t.Errorf("milestone = %+v", got.Milestones[0])
	}

	w = a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/financial", map[string]any{"current_amount": 250})
	expectStatus(t, w, http.StatusOK)
	if got := decode[types.Goal](t, w); got.CurrentAmount != 250 {
		t.Errorf("current = %v", got.CurrentAmount)
	}
	expectStatus(t, a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/financial", map[string]any{"current_amount": -1}), http.StatusBadRequest)
}

func TestGoals_ValidationAndLifecycle(t *testing.T) {
	a := newTestAPI(t)
	expectStatus(t, a.do(http.MethodPost, "/api/v1/goals", map[string]any{"title": ""}), http.StatusUnprocessableEntity)

	goal := a.goals.Add(types.Goal{Title: "g"})
	w := a.do(http.MethodPost, "/api/v1/goals/"+goal.ID+"/pause", nil)
	if got := decode[types.Goal](t, w); got.Lifecycle != types.LifecyclePaused {
		t.Errorf("lifecycle = %s", got.Lifecycle)
	}
	expectStatus(t, a.do(http.MethodDelete, "/api/v1/goals/"+goal.ID, nil), http.StatusNoContent)
}

// --- Focus ---

func TestFocus_StartStop(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(http.MethodPost, "/api/v1/focus/start", map[string]string{"task_id": "t1"})
	expectStatus(t, w, http.StatusOK)
	if got := decode[focus.Snapshot](t, w); got.Phase != focus.PhaseFocus || a.focus.lastTask != "t1" {
		t.Errorf("snapshot = %+v", got)
	}

	w = a.do(http.MethodGet, "/api/v1/focus", nil)
	if got := decode[focus.Snapshot](t, w); got.RemainingSeconds != 1500 {
		t.Errorf("snapshot = %+v", got)
	}

	// Stop is idempotent at the API too
	for i := 0; i < 2; i++ {
		expectStatus(t, a.do(http.MethodPost, "/api/v1/focus/stop", nil), http.StatusOK)
	}
	if a.focus.stopCalls != 2 {
		t.Errorf("stopCalls = %d", a.focus.stopCalls)
	}
}

func TestFocus_Deselect(t *testing.T) {
	a := newTestAPI(t)
	expectStatus(t, a.do(http.MethodPost, "/api/v1/focus/start", map[string]string{"task_id": "t1"}), http.StatusOK)

	w := a.do(http.MethodPost, "/api/v1/focus/deselect", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[focus.Snapshot](t, w); got.Phase != focus.PhaseIdle || a.focus.deselects != 1 {
		t.Errorf("snapshot = %+v, deselects = %d", got, a.focus.deselects)
	}
}

func TestFocus_StartErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{focus.ErrTaskNotFound, http.StatusNotFound},
		{focus.ErrSessionActive, http.StatusConflict},
		{focus.ErrTaskNotSelectable, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			a := newTestAPI(t)
			a.focus.startErr = tt.err
			expectStatus(t, a.do(http.MethodPost, "/api/v1/focus/start", map[string]string{"task_id": "t1"}), tt.want)
		})
	}

	a := newTestAPI(t)
	expectStatus(t, a.do(http.MethodPost, "/api/v1/focus/start", map[string]string{}), http.StatusBadRequest)
}

// --- Insights ---

func TestInsights_ListDismissGenerate(t *testing.T) {
	a := newTestAPI(t)
	in := a.tasks.AddInsight(types.Insight{Type: types.InsightTip, Message: "hydrate"})

	w := a.do(http.MethodGet, "/api/v1/insights", nil)
	if got := decode[[]types.Insight](t, w); len(got) != 1 {
		t.Fatalf("insights = %+v", got)
	}

	expectStatus(t, a.do(http.MethodPost, "/api/v1/insights/"+in.ID+"/dismiss", nil), http.StatusNoContent)
	w = a.do(http.MethodGet, "/api/v1/insights", nil)
	if got := decode[[]types.Insight](t, w); len(got) != 0 {
		t.Errorf("visible after dismiss = %+v", got)
	}
	w = a.do(http.MethodGet, "/api/v1/insights?all=true", nil)
	if got := decode[[]types.Insight](t, w); len(got) != 1 || !got[0].Dismissed {
		t.Errorf("all = %+v", got)
	}
	expectStatus(t, a.do(http.MethodPost, "/api/v1/insights/missing/dismiss", nil), http.StatusNotFound)

	a.insights.res = insight.Result{Insights: []types.Insight{{Message: "new"}}, Recommendations: []string{"walk"}}
	w = a.do(http.MethodPost, "/api/v1/insights/generate", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[insight.Result](t, w); len(got.Insights) != 1 || got.Recommendations[0] != "walk" {
		t.Errorf("generated = %+v", got)
	}

	a.insights.err = errors.New("boom")
	expectStatus(t, a.do(http.MethodPost, "/api/v1/insights/generate", nil), http.StatusInternalServerError)
}

// --- Sync ---

func TestSync_StatusAndManualSync(t *testing.T) {
	a := newTestAPI(t)
	a.sync.status.PendingChanges = 2

	w := a.do(http.MethodGet, "/api/v1/sync/status", nil)
	if got := decode[ffsync.Status](t, w); got.PendingChanges != 2 || got.State != ffsync.StateIdle {
		t.Errorf("status = %+v", got)
	}

	expectStatus(t, a.do(http.MethodPost, "/api/v1/sync", nil), http.StatusOK)
	if a.sync.syncCalls != 1 {
		t.Errorf("syncCalls = %d", a.sync.syncCalls)
	}
}

func TestSync_ManualSyncErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", ffsync.ErrSyncInProgress, http.StatusConflict},
		{"offline", ffsync.ErrOffline, http.StatusServiceUnavailable},
		{"remote failure", errors.New("tasks: connection refused"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t)
			a.sync.err = tt.err
			w := a.do(http.MethodPost, "/api/v1/sync", nil)
			expectStatus(t, w, tt.want)
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Error("remote error detail leaked")
			}
		})
	}
}

func TestSync_Events(t *testing.T) {
	a := newTestAPI(t)
	for _, ev := range []string{"focus", "visible", "hidden", "offline", "online"} {
		expectStatus(t, a.do(http.MethodPost, "/api/v1/sync/events", map[string]string{"event": ev}), http.StatusAccepted)
	}
	want := []string{"focus", "visible", "hidden", "offline", "online"}
	if strings.Join(a.sync.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v", a.sync.events)
	}
	expectStatus(t, a.do(http.MethodPost, "/api/v1/sync/events", map[string]string{"event": "blur"}), http.StatusBadRequest)
}
