package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// OutboxStore defines the store operations needed by the outbox worker.
type OutboxStore interface {
	AppendOutbox(ctx context.Context, entry *ffsync.OutboxEntry) (int64, error)
	PendingOutbox(ctx context.Context, limit int) ([]ffsync.OutboxEntry, error)
	DeleteOutbox(ctx context.Context, sequence int64) error
	CountOutbox(ctx context.Context) (int64, error)
	ClearOutbox(ctx context.Context) error
}

// Applier replays one queued operation against the remote table it owns.
type Applier interface {
	Apply(ctx context.Context, entry ffsync.OutboxEntry) error
}

// OutboxWorker queues remote mirror operations durably and replays them
// one at a time in sequence order. It implements state.Mirror.
type OutboxWorker struct {
	store     OutboxStore
	appliers  map[string]Applier
	users     ffsync.UserResolver
	batchSize int
	interval  time.Duration
	wake      chan struct{}
	logger    *slog.Logger
}

// NewOutboxWorker creates an outbox worker. interval is the fallback poll
// period; enqueued operations wake the worker immediately.
func NewOutboxWorker(store OutboxStore, batchSize int, interval time.Duration) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OutboxWorker{
		store:     store,
		appliers:  make(map[string]Applier),
		batchSize: batchSize,
		interval:  interval,
		wake:      make(chan struct{}, 1),
		logger:    slog.Default().With("component", "worker", "worker", "outbox"),
	}
}

// WithUsers stamps each queued entry with the user signed in when it was
// queued. Call before Run.
func (w *OutboxWorker) WithUsers(users ffsync.UserResolver) *OutboxWorker {
	w.users = users
	return w
}

// Register routes entries for table to a. Call before Run.
func (w *OutboxWorker) Register(table string, a Applier) {
	w.appliers[table] = a
}

func (w *OutboxWorker) MirrorInsert(table, id string, entity any) {
	w.enqueue(table, id, ffsync.OperationInsert, entity, nil)
}

func (w *OutboxWorker) MirrorUpdate(table, id string, patch any, updatedAt time.Time) {
	w.enqueue(table, id, ffsync.OperationUpdate, patch, &updatedAt)
}

func (w *OutboxWorker) MirrorDelete(table, id string) {
	w.enqueue(table, id, ffsync.OperationDelete, nil, nil)
}

func (w *OutboxWorker) enqueue(table, id, op string, payload any, updatedAt *time.Time) {
	entry := &ffsync.OutboxEntry{
		TableName: table,
		EntityID:  id,
		Operation: op,
		UpdatedAt: updatedAt,
		CreatedAt: types.Now(),
	}
	if w.users != nil {
		entry.UserID = w.users.CurrentUserID()
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			w.logger.Error("failed to encode mirror payload",
				"action", "enqueue",
				"table", table,
				"entity_id", id,
				"error", err,
			)
			return
		}
		entry.Payload = data
	}
	if _, err := w.store.AppendOutbox(context.Background(), entry); err != nil {
		w.logger.Error("failed to enqueue mirror op",
			"action", "enqueue",
			"table", table,
			"entity_id", id,
			"operation", op,
			"error", err,
		)
		return
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains the outbox until ctx is cancelled.
func (w *OutboxWorker) Run(ctx context.Context) {
	w.logger.Info("worker started", "interval", w.interval.String(), "batch_size", w.batchSize)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", "context_cancelled")
			return
		case <-w.wake:
			w.Drain(ctx)
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain replays queued entries until the outbox is empty and returns how
// many were processed. A failed entry is logged and dropped; the next
// reconciliation pass repairs the remote row. An entry interrupted by
// cancellation stays queued.
func (w *OutboxWorker) Drain(ctx context.Context) int {
	processed := 0
	for ctx.Err() == nil {
		entries, err := w.store.PendingOutbox(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error("failed to read outbox", "action", "drain", "error", err)
			}
			return processed
		}
		if len(entries) == 0 {
			return processed
		}
		for _, entry := range entries {
			if err := w.apply(ctx, entry); err != nil && ctx.Err() != nil {
				return processed
			}
			if err := w.store.DeleteOutbox(ctx, entry.Sequence); err != nil {
				w.logger.Error("failed to remove outbox entry",
					"action", "drain",
					"sequence", entry.Sequence,
					"error", err,
				)
				return processed
			}
			processed++
		}
	}
	return processed
}

func (w *OutboxWorker) apply(ctx context.Context, entry ffsync.OutboxEntry) error {
	a, ok := w.appliers[entry.TableName]
	if !ok {
		w.logger.Warn("no applier for outbox entry, dropping",
			"action", "apply",
			"table", entry.TableName,
			"sequence", entry.Sequence,
		)
		return nil
	}
	if err := a.Apply(ctx, entry); err != nil {
		if errors.Is(err, ffsync.ErrUserChanged) {
			w.logger.Info("mirror op queued by another user, dropping",
				"action", "apply",
				"table", entry.TableName,
				"entity_id", entry.EntityID,
				"operation", entry.Operation,
			)
			return err
		}
		if ctx.Err() == nil {
			w.logger.Warn("mirror op failed, dropping",
				"action", "apply",
				"table", entry.TableName,
				"entity_id", entry.EntityID,
				"operation", entry.Operation,
				"error", err,
			)
		}
		return err
	}
	w.logger.Debug("mirror op applied",
		"action", "apply",
		"table", entry.TableName,
		"entity_id", entry.EntityID,
		"operation", entry.Operation,
	)
	return nil
}

// Pending returns the number of queued entries.
func (w *OutboxWorker) Pending(ctx context.Context) int64 {
	n, err := w.store.CountOutbox(ctx)
	if err != nil {
		w.logger.Error("failed to count outbox", "action", "pending", "error", err)
		return 0
	}
	return n
}

// Clear discards every queued entry.
func (w *OutboxWorker) Clear(ctx context.Context) error {
	return w.store.ClearOutbox(ctx)
}
