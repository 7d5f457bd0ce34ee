package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/config"
)

const appTestAPIKey = "app-test-key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: 0},
		Local:  config.LocalConfig{Path: filepath.Join(t.TempDir(), "app.db")},
		Auth:   config.AuthConfig{JWTSecret: testJWTSecret, APIKey: appTestAPIKey},
		Sync:   config.SyncConfig{Interval: config.Duration(time.Hour)},
		Focus: config.FocusConfig{
			Recovery:       config.Duration(5 * time.Minute),
			TickInterval:   config.Duration(time.Second),
			MinMinutes:     15,
			MaxMinutes:     50,
			DefaultMinutes: 25,
			LightMinutes:   20,
			HeavyMinutes:   35,
		},
		Worker: config.WorkerConfig{
			MonitorInterval: config.Duration(time.Hour),
			OutboxInterval:  config.Duration(time.Hour),
			OutboxBatchSize: 10,
		},
		Notify: config.NotifyConfig{SubjectPrefix: "focusflow.test"},
		Log:    config.LogConfig{Level: "error", Format: "json"},
	}
}

func appRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+appTestAPIKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_MemoryBackendServesAPI(t *testing.T) {
	captureDefault(t)
	ctx := context.Background()

	// Given: An app without a remote DSN or NATS URL
	a, err := newApp(ctx, testConfig(t), "test")
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	if a.remoteKind != "memory" || a.remoteDB != nil || a.nc != nil {
		t.Errorf("remote = %q, db = %v, nats = %v", a.remoteKind, a.remoteDB, a.nc)
	}

	// When: Health is requested
	rec := appRequest(t, a.router, http.MethodGet, "/api/v1/health", "")

	// Then
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["version"] != "test" || health["signed_in"] != false {
		t.Errorf("health = %v", health)
	}
}

func TestNewApp_SignInAndCreateTask(t *testing.T) {
	captureDefault(t)
	ctx := context.Background()

	a, err := newApp(ctx, testConfig(t), "test")
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	token, err := auth.IssueToken([]byte(testJWTSecret), "user-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	rec := appRequest(t, a.router, http.MethodPost, "/api/v1/session", `{"token":"`+token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in status = %d: %s", rec.Code, rec.Body.String())
	}
	if a.session.CurrentUserID() != "user-1" {
		t.Errorf("current user = %q", a.session.CurrentUserID())
	}

	rec = appRequest(t, a.router, http.MethodPost, "/api/v1/tasks", `{"title":"Write report"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if a.tasks.Len() != 1 {
		t.Errorf("tasks = %d, want 1", a.tasks.Len())
	}
}

func TestNewApp_ReloadsPersistedState(t *testing.T) {
	captureDefault(t)
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := newApp(ctx, cfg, "test")
	if err != nil {
		t.Fatal(err)
	}
	rec := appRequest(t, first.router, http.MethodPost, "/api/v1/notes", `{"title":"n","content":"body"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create note status = %d: %s", rec.Code, rec.Body.String())
	}
	first.close()

	second, err := newApp(ctx, cfg, "test")
	if err != nil {
		t.Fatal(err)
	}
	defer second.close()
	if second.notes.Len() != 1 {
		t.Errorf("notes after reload = %d, want 1", second.notes.Len())
	}
}

func TestApp_WorkersStopOnCancel(t *testing.T) {
	capture := captureDefault(t)

	a, err := newApp(context.Background(), testConfig(t), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	a.startWorkers(ctx, &wg)
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not stop")
	}

	stopped := capture.workers("worker stopped")
	if len(stopped) != 4 {
		t.Errorf("stopped workers = %v, want 4", stopped)
	}
}

func TestApp_StartupWithoutSessionClearsCachedState(t *testing.T) {
	captureDefault(t)
	cfg := testConfig(t)

	// Given: A previous run left a task cached on disk
	first, err := newApp(context.Background(), cfg, "test")
	if err != nil {
		t.Fatal(err)
	}
	rec := appRequest(t, first.router, http.MethodPost, "/api/v1/tasks", `{"title":"left behind"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	first.close()

	second, err := newApp(context.Background(), cfg, "test")
	if err != nil {
		t.Fatal(err)
	}
	defer second.close()
	if second.tasks.Len() != 1 {
		t.Fatalf("cached tasks = %d, want 1 before startup", second.tasks.Len())
	}

	// When: The workers start with nobody signed in
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	second.startWorkers(ctx, &wg)
	cancel()
	wg.Wait()

	// Then: The cache is gone and the API lists nothing
	if second.tasks.Len() != 0 {
		t.Errorf("tasks after startup = %d, want 0", second.tasks.Len())
	}
	rec = appRequest(t, second.router, http.MethodGet, "/api/v1/tasks", "")
	var tasks []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v (%s)", err, rec.Body.String())
	}
	if len(tasks) != 0 {
		t.Errorf("GET /tasks = %d items, want 0", len(tasks))
	}
}
