// Package bootstrap replaces local collections with the signed-in user's
// remote rows and isolates cached state between users.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/focusflow/internal/notify"
	"github.com/hyperengineering/focusflow/internal/store"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// MetaStore persists the last known user marker.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error
}

// OutboxClearer discards queued mirror operations.
type OutboxClearer interface {
	Clear(ctx context.Context) error
}

// Target is one table loaded on sign-in.
type Target interface {
	Name() string
	Fetch(ctx context.Context) (commit func(), err error)
	Clear()
}

// Options configures a Loader.
type Options struct {
	Meta     MetaStore
	Outbox   OutboxClearer
	Notifier notify.Notifier
	// OnLoaded runs after a user's bootstrap completes.
	OnLoaded func(userID string)
}

// Loader reacts to user changes by clearing and reloading its targets.
type Loader struct {
	meta     MetaStore
	outbox   OutboxClearer
	notifier notify.Notifier
	onLoaded func(userID string)
	targets  []Target
	logger   *slog.Logger

	mu  sync.Mutex
	gen atomic.Uint64

	readyMu   sync.RWMutex
	readyUser string
}

// NewLoader creates a loader for targets.
func NewLoader(opts Options, targets ...Target) *Loader {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Loader{
		meta:     opts.Meta,
		outbox:   opts.Outbox,
		notifier: opts.Notifier,
		onLoaded: opts.OnLoaded,
		targets:  targets,
		logger:   slog.Default().With("component", "bootstrap"),
	}
}

// Run handles user changes from events until ctx is cancelled or events
// is closed.
func (l *Loader) Run(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case uid, ok := <-events:
			if !ok {
				return
			}
			if err := l.UserChanged(ctx, uid); err != nil {
				l.logger.Warn("bootstrap incomplete", "action", "user_changed", "error", err)
			}
		}
	}
}

// UserChanged clears local state when userID is empty or differs from the
// last known user, then replaces every target with userID's remote rows.
// Loads superseded by a later call are discarded.
func (l *Loader) UserChanged(ctx context.Context, userID string) error {
	gen := l.gen.Add(1)
	l.setReady("")

	if userID == "" {
		l.mu.Lock()
		l.clearLocked(ctx)
		l.mu.Unlock()
		if err := l.meta.DeleteMeta(ctx, store.MetaLastUserID); err != nil {
			l.logger.Error("failed to delete user marker", "action", "sign_out", "error", err)
		}
		l.logger.Info("local state cleared", "action", "sign_out")
		return nil
	}

	last, err := l.meta.GetMeta(ctx, store.MetaLastUserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		l.logger.Error("failed to read user marker", "action", "user_changed", "error", err)
	}
	if last != userID {
		l.mu.Lock()
		l.clearLocked(ctx)
		l.mu.Unlock()
		l.logger.Info("user switch detected, local state cleared",
			"action", "user_changed",
			"user_id", userID,
			"had_previous", last != "",
		)
	}
	if err := l.meta.SetMeta(ctx, store.MetaLastUserID, userID); err != nil {
		l.logger.Error("failed to write user marker", "action", "user_changed", "error", err)
	}

	ctx = ffsync.WithUser(ctx, userID)
	errs := make([]error, len(l.targets))
	var g errgroup.Group
	for i, t := range l.targets {
		g.Go(func() error {
			commit, err := t.Fetch(ctx)
			if err != nil {
				errs[i] = err
				l.logger.Error("bootstrap load failed", "action", "load", "table", t.Name(), "error", err)
				l.notifier.Notify(ctx, notify.Event{
					Kind:    notify.KindBootstrapFailed,
					Level:   notify.LevelError,
					Title:   "Could not load " + t.Name(),
					Message: err.Error(),
				})
				return nil
			}
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.gen.Load() != gen {
				l.logger.Debug("stale bootstrap discarded", "action", "load", "table", t.Name())
				return nil
			}
			commit()
			l.logger.Info("bootstrap loaded", "action", "load", "table", t.Name(), "user_id", userID)
			return nil
		})
	}
	_ = g.Wait()

	if l.gen.Load() == gen {
		l.setReady(userID)
		if l.onLoaded != nil {
			l.onLoaded(userID)
		}
	}
	return multierr.Combine(errs...)
}

// BootstrappedUser returns the user whose bootstrap last completed, or ""
// while a load is in flight or nobody is signed in.
func (l *Loader) BootstrappedUser() string {
	l.readyMu.RLock()
	defer l.readyMu.RUnlock()
	return l.readyUser
}

func (l *Loader) setReady(userID string) {
	l.readyMu.Lock()
	defer l.readyMu.Unlock()
	l.readyUser = userID
}

func (l *Loader) clearLocked(ctx context.Context) {
	for _, t := range l.targets {
		t.Clear()
	}
	if l.outbox != nil {
		if err := l.outbox.Clear(ctx); err != nil {
			l.logger.Error("failed to clear outbox", "action", "clear", "error", err)
		}
	}
}
