package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hyperengineering/focusflow/internal/api"
	"github.com/hyperengineering/focusflow/internal/auth"
	"github.com/hyperengineering/focusflow/internal/bootstrap"
	"github.com/hyperengineering/focusflow/internal/config"
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

// app holds the wired components of a running FocusFlow process.
type app struct {
	local      *store.SQLiteStore
	backend    remote.Backend
	remoteDB   *remote.PostgresBackend
	remoteKind string
	nc         *nats.Conn

	session *auth.Session
	tasks   *state.TaskStore
	notes   *state.NoteStore
	goals   *state.GoalStore

	outbox   *worker.OutboxWorker
	monitor  *worker.DueDateMonitor
	sync     *ffsync.Engine
	loader   *bootstrap.Loader
	focus    *focus.Engine
	insights *insight.Generator

	router      http.Handler
	unsubscribe func()
}

// newApp opens storage and wires every component. On error everything
// opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config, version string) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Local durable storage (migrations, WAL mode)
	a.local, err = store.NewSQLiteStore(cfg.Local.Path)
	if err != nil {
		return nil, err
	}

	// Remote backend
	if err = a.openRemote(ctx, cfg.Remote.DSN); err != nil {
		return nil, err
	}

	// Notifications
	notifier := a.openNotifier(cfg.Notify)

	// Auth session and remote gateways
	a.session = auth.NewSession([]byte(cfg.Auth.JWTSecret))
	taskGW := remote.NewTaskGateway(a.backend, a.session)
	noteGW := remote.NewNoteGateway(a.backend, a.session)
	goalGW := remote.NewGoalGateway(a.backend, a.session)

	// Outbound mirror queue
	a.outbox = worker.NewOutboxWorker(a.local, cfg.Worker.OutboxBatchSize, time.Duration(cfg.Worker.OutboxInterval)).
		WithUsers(a.session)
	a.outbox.Register(ffsync.TableTasks, taskGW)
	a.outbox.Register(ffsync.TableNotes, noteGW)
	a.outbox.Register(ffsync.TableGoals, goalGW)

	// Entity stores
	opts := state.Options{Persister: a.local, Mirror: a.outbox}
	a.tasks = state.NewTaskStore(opts)
	a.notes = state.NewNoteStore(opts)
	a.goals = state.NewGoalStore(opts)
	for _, l := range []interface{ Load(context.Context) error }{a.tasks, a.notes, a.goals} {
		if err = l.Load(ctx); err != nil {
			return nil, fmt.Errorf("load local state: %w", err)
		}
	}

	// Bootstrap loaders
	a.loader = bootstrap.NewLoader(
		bootstrap.Options{
			Meta:     a.local,
			Outbox:   a.outbox,
			Notifier: notifier,
			OnLoaded: func(string) { a.sync.Trigger("bootstrap") },
		},
		bootstrap.NewTable[types.Task](taskGW, a.tasks),
		bootstrap.NewTable[types.Note](noteGW, a.notes).WithSignature(types.Note.Signature),
		bootstrap.NewTable[types.Goal](goalGW, a.goals),
	)

	// Sync engine
	a.sync = ffsync.NewEngine(ffsync.EngineOptions{
		Users:     a.session,
		Bootstrap: a.loader,
		Notifier:  notifier,
		Pending:   a.outbox,
		Interval:  time.Duration(cfg.Sync.Interval),
	},
		ffsync.NewReconciler[types.Task](a.tasks, taskGW),
		ffsync.NewReconciler[types.Note](a.notes, noteGW),
		ffsync.NewReconciler[types.Goal](a.goals, goalGW),
	)

	// Focus engine
	a.focus = focus.NewEngine(a.tasks, focus.Options{
		Config:   focusConfig(cfg.Focus),
		Notifier: notifier,
	})

	// Insights
	var advisor insight.Advisor
	if cfg.Insight.OpenAIAPIKey != "" {
		advisor = insight.NewOpenAIAdvisor(cfg.Insight.OpenAIAPIKey, cfg.Insight.Model)
	}
	a.insights = insight.NewGenerator(a.tasks, advisor)

	// Due-date monitor
	a.monitor = worker.NewDueDateMonitor(a.tasks, a.goals, notifier, time.Duration(cfg.Worker.MonitorInterval))

	// HTTP API
	a.router = api.NewRouter(api.NewHandler(api.Dependencies{
		Tasks:    a.tasks,
		Notes:    a.notes,
		Goals:    a.goals,
		Session:  a.session,
		Focus:    a.focus,
		Sync:     a.sync,
		Insights: a.insights,
		APIKey:   cfg.Auth.APIKey,
		Version:  version,
	}))

	return a, nil
}

// openRemote selects PostgreSQL when dsn is set, otherwise an in-process
// backend that lives as long as the process.
func (a *app) openRemote(ctx context.Context, dsn string) error {
	if dsn == "" {
		a.backend = remote.NewMemoryBackend()
		a.remoteKind = "memory"
		return nil
	}
	db, err := remote.OpenPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	if err := remote.Migrate(db); err != nil {
		db.Close()
		return err
	}
	a.remoteDB = remote.NewPostgresBackend(db)
	a.backend = a.remoteDB
	a.remoteKind = "postgres"
	return nil
}

// openNotifier always logs notifications and also publishes them to NATS
// when a URL is configured. A NATS connection failure is not fatal.
func (a *app) openNotifier(cfg config.NotifyConfig) notify.Notifier {
	notifiers := notify.Multi{notify.NewLogNotifier(slog.Default())}
	if cfg.NATSURL == "" {
		return notifiers
	}
	nc, err := notify.ConnectNATS(cfg.NATSURL)
	if err != nil {
		slog.Warn("nats unavailable, notifications are log-only", "component", "notify", "error", err)
		return notifiers
	}
	a.nc = nc
	return append(notifiers, notify.NewNATSNotifier(nc, cfg.SubjectPrefix))
}

// startWorkers launches every background loop under wg.
func (a *app) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	events, unsubscribe := a.session.Subscribe()
	a.unsubscribe = unsubscribe

	// Cached state from a previous run must not outlive its owner
	if err := a.loader.UserChanged(ctx, a.session.CurrentUserID()); err != nil {
		slog.Warn("startup bootstrap incomplete", "component", "app", "error", err)
	}

	startWorker(ctx, wg, "outbox", a.outbox.Run)
	startWorker(ctx, wg, "sync", a.sync.Run)
	startWorker(ctx, wg, "due-date-monitor", a.monitor.Run)
	startWorker(ctx, wg, "bootstrap", func(ctx context.Context) {
		a.loader.Run(ctx, events)
	})
}

// close releases connections. Safe on a partially built app.
func (a *app) close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.focus != nil {
		a.focus.Stop(context.Background())
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			slog.Error("nats drain error", "error", err)
		}
	}
	if a.remoteDB != nil {
		if err := a.remoteDB.Close(); err != nil {
			slog.Error("remote close error", "error", err)
		}
	}
	if a.local != nil {
		if err := a.local.Close(); err != nil {
			slog.Error("store close error", "error", err)
		}
	}
}

func focusConfig(c config.FocusConfig) focus.Config {
	return focus.Config{
		Recovery:       time.Duration(c.Recovery),
		TickInterval:   time.Duration(c.TickInterval),
		MinMinutes:     c.MinMinutes,
		MaxMinutes:     c.MaxMinutes,
		DefaultMinutes: c.DefaultMinutes,
		LightMinutes:   c.LightMinutes,
		HeavyMinutes:   c.HeavyMinutes,
	}
}
