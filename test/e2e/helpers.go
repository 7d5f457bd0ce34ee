package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/focusflow/internal/api"
	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/bootstrap"
	"github.com/hyperengineering/focusflow/internal/focus"
	"github.com/hyperengineering/focusflow/internal/insight"
	"github.com/hyperengineering/focusflow/internal/notify"
	"github.com/hyperengineering/focusflow/internal/remote"
	"github.com/hyperengineering/focusflow/internal/state"
	"github.com/hyperengineering/focusflow/internal/store"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
	"github.com/hyperengineering/focusflow/internal/worker"
)

const (
	testAPIKey    = "e2e-test-api-key"
	testJWTSecret = "e2e-test-secret"
)

// clock is a manually advanced time source shared by devices so that
// last-writer-wins comparisons are deterministic.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// device is one FocusFlow install: its own SQLite file, stores, outbox and
// API, sharing a remote backend with other devices.
type device struct {
	name    string
	local   *store.SQLiteStore
	session *auth.Session
	tasks   *state.TaskStore
	notes   *state.NoteStore
	goals   *state.GoalStore
	outbox  *worker.OutboxWorker
	sync    *ffsync.Engine
	loader  *bootstrap.Loader
	server  *httptest.Server
}

func newDevice(t *testing.T, name string, backend remote.Backend, clk *clock) *device {
	t.Helper()

	local, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), name+".db"))
	if err != nil {
		t.Fatalf("open %s store: %v", name, err)
	}

	d := &device{name: name, local: local}
	d.session = auth.NewSession([]byte(testJWTSecret))
	taskGW := remote.NewTaskGateway(backend, d.session)
	noteGW := remote.NewNoteGateway(backend, d.session)
	goalGW := remote.NewGoalGateway(backend, d.session)

	d.outbox = worker.NewOutboxWorker(local, 50, time.Hour).WithUsers(d.session)
	d.outbox.Register(ffsync.TableTasks, taskGW)
	d.outbox.Register(ffsync.TableNotes, noteGW)
	d.outbox.Register(ffsync.TableGoals, goalGW)

	opts := state.Options{Persister: local, Mirror: d.outbox, Now: clk.Now, Location: time.UTC}
	d.tasks = state.NewTaskStore(opts)
	d.notes = state.NewNoteStore(opts)
	d.goals = state.NewGoalStore(opts)

	notifier := notify.NewLogNotifier(nil)
	d.loader = bootstrap.NewLoader(
		bootstrap.Options{Meta: local, Outbox: d.outbox, Notifier: notifier},
		bootstrap.NewTable[types.Task](taskGW, d.tasks),
		bootstrap.NewTable[types.Note](noteGW, d.notes).WithSignature(types.Note.Signature),
		bootstrap.NewTable[types.Goal](goalGW, d.goals),
	)
	d.sync = ffsync.NewEngine(ffsync.EngineOptions{
		Users:     d.session,
		Bootstrap: d.loader,
		Notifier:  notifier,
		Pending:   d.outbox,
		Interval:  time.Hour,
		Now:       clk.Now,
	},
		ffsync.NewReconciler[types.Task](d.tasks, taskGW),
		ffsync.NewReconciler[types.Note](d.notes, noteGW),
		ffsync.NewReconciler[types.Goal](d.goals, goalGW),
	)

	focusEngine := focus.NewEngine(d.tasks, focus.Options{Notifier: notifier, Now: clk.Now})
	router := api.NewRouter(api.NewHandler(api.Dependencies{
		Tasks:    d.tasks,
		Notes:    d.notes,
		Goals:    d.goals,
		Session:  d.session,
		Focus:    focusEngine,
		Sync:     d.sync,
		Insights: insight.NewGenerator(d.tasks, nil),
		APIKey:   testAPIKey,
		Version:  "e2e",
	}))
	d.server = httptest.NewServer(router)

	t.Cleanup(func() {
		d.server.Close()
		focusEngine.Stop(context.Background())
		local.Close()
	})
	return d
}

// signIn posts a token for userID and runs the bootstrap load the
// background loader would run on the session change.
func (d *device) signIn(t *testing.T, userID string) {
	t.Helper()
	d.postSession(t, userID)
	if err := d.loader.UserChanged(context.Background(), userID); err != nil {
		t.Fatalf("%s bootstrap: %v", d.name, err)
	}
}

// postSession switches the signed-in user without waiting for bootstrap.
func (d *device) postSession(t *testing.T, userID string) {
	t.Helper()
	token, err := auth.IssueToken([]byte(testJWTSecret), userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	resp := d.do(t, http.MethodPost, "/api/v1/session", map[string]string{"token": token})
	expectStatus(t, resp, http.StatusOK)
}

// flush replays the device's outbox against the remote backend.
func (d *device) flush(t *testing.T) int {
	t.Helper()
	return d.outbox.Drain(context.Background())
}

func (d *device) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, d.server.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
