package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/focusflow/internal/notify"
	"github.com/hyperengineering/focusflow/internal/types"
)

var (
	// ErrSyncInProgress is returned when a pass is already running.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrOffline is returned while the network is reported offline.
	ErrOffline = errors.New("offline")
)

// Pass is one per-type reconciliation.
type Pass interface {
	Table() string
	Reconcile(ctx context.Context) (Stats, error)
}

// UserResolver reports the authenticated user. Empty means signed out.
type UserResolver interface {
	CurrentUserID() string
}

// BootstrapState reports the user whose bootstrap load last completed.
type BootstrapState interface {
	BootstrappedUser() string
}

// PendingCounter reports queued outbound mirror operations.
type PendingCounter interface {
	Pending(ctx context.Context) int64
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	Users UserResolver
	// Bootstrap, when set, holds passes back until the signed-in user's
	// bootstrap load has completed.
	Bootstrap BootstrapState
	Notifier  notify.Notifier
	Pending   PendingCounter
	Interval  time.Duration
	Now       func() time.Time
}

// Engine schedules reconciliation passes across all entity types.
type Engine struct {
	passes    []Pass
	users     UserResolver
	bootstrap BootstrapState
	notifier  notify.Notifier
	pending   PendingCounter
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	syncing atomic.Bool
	online  atomic.Bool
	trigger chan string

	mu       stdsync.RWMutex
	state    State
	lastSync *time.Time
	lastErr  string
	tables   map[string]Stats
}

// NewEngine creates an engine that reconciles passes. The engine starts online.
func NewEngine(opts EngineOptions, passes ...Pass) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = types.Now
	}
	e := &Engine{
		passes:    passes,
		users:     opts.Users,
		bootstrap: opts.Bootstrap,
		notifier:  opts.Notifier,
		pending:   opts.Pending,
		interval:  opts.Interval,
		now:       opts.Now,
		logger:    slog.Default().With("component", "sync"),
		trigger:   make(chan string, 1),
		state:     StateIdle,
		tables:    make(map[string]Stats),
	}
	e.online.Store(true)
	return e
}

// Run performs the start sync, then syncs on every tick and trigger until
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("sync engine started", "interval", e.interval.String())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.runPass(ctx, "start")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped", "reason", "context_cancelled")
			return
		case <-ticker.C:
			e.runPass(ctx, "timer")
		case reason := <-e.trigger:
			e.runPass(ctx, reason)
		}
	}
}

func (e *Engine) runPass(ctx context.Context, reason string) {
	err := e.SyncAll(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrOffline):
		e.logger.Debug("sync suppressed", "action", "sync", "reason", reason, "cause", err)
	case err != nil:
		e.logger.Warn("sync failed", "action", "sync", "reason", reason, "error", err)
	}
}

// Trigger queues a sync. Triggers coalesce while one is already queued.
func (e *Engine) Trigger(reason string) {
	select {
	case e.trigger <- reason:
	default:
	}
}

// WindowFocused queues a sync.
func (e *Engine) WindowFocused() { e.Trigger("focus") }

// VisibilityChanged queues a sync when the app becomes visible.
func (e *Engine) VisibilityChanged(visible bool) {
	if visible {
		e.Trigger("visible")
	}
}

// SetOnline records connectivity and queues a sync on an offline to
// online transition.
func (e *Engine) SetOnline(online bool) {
	was := e.online.Swap(online)
	if online && !was {
		e.Trigger("online")
	}
}

// Online reports the last connectivity signal.
func (e *Engine) Online() bool { return e.online.Load() }

// SyncAll runs every pass in parallel and waits for all of them. Failures
// are aggregated into one error and one notification.
func (e *Engine) SyncAll(ctx context.Context) error {
	if !e.online.Load() {
		return ErrOffline
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	if e.users == nil {
		return nil
	}
	uid := e.users.CurrentUserID()
	if uid == "" {
		return nil
	}
	// Local state may still belong to the previous user
	if e.bootstrap != nil && e.bootstrap.BootstrappedUser() != uid {
		e.logger.Debug("sync deferred until bootstrap completes", "action", "sync")
		return nil
	}
	ctx = WithUser(ctx, uid)

	e.setState(StateSyncing)
	start := time.Now()

	stats := make([]Stats, len(e.passes))
	errs := make([]error, len(e.passes))
	var g errgroup.Group
	for i, p := range e.passes {
		g.Go(func() error {
			s, err := p.Reconcile(ctx)
			stats[i] = s
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.Table(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	err := multierr.Combine(errs...)

	now := e.now()
	e.mu.Lock()
	for i, p := range e.passes {
		e.tables[p.Table()] = stats[i]
	}
	if err != nil {
		e.state = StateIdleWithError
		e.lastErr = err.Error()
	} else {
		e.state = StateIdle
		e.lastErr = ""
		e.lastSync = &now
	}
	e.mu.Unlock()

	if err != nil {
		e.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindSyncFailed,
			Level:   notify.LevelError,
			Title:   "Sync failed",
			Message: err.Error(),
			At:      now,
		})
		return err
	}

	e.logger.Info("sync completed",
		"action", "sync",
		"tables", len(e.passes),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	e.notifier.Notify(ctx, notify.Event{
		Kind:  notify.KindSyncSucceeded,
		Level: notify.LevelSuccess,
		Title: "Synced",
		At:    now,
	})
	return nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Status returns a snapshot of the engine.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.RLock()
	st := Status{
		State:      e.state,
		Online:     e.online.Load(),
		InProgress: e.syncing.Load(),
		LastError:  e.lastErr,
		Tables:     make(map[string]Stats, len(e.tables)),
	}
	if e.lastSync != nil {
		t := *e.lastSync
		st.LastSync = &t
	}
	for k, v := range e.tables {
		st.Tables[k] = v
	}
	e.mu.RUnlock()

	if e.pending != nil {
		st.PendingChanges = e.pending.Pending(ctx)
	}
	return st
}
