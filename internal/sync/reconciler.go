package sync

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hyperengineering/focusflow/internal/types"
)

// LocalStore is the entity store side of a reconciliation pass.
type LocalStore[E types.Entity] interface {
	All() []E
	// UpsertFromSync applies e unless the local copy is at least as new.
	UpsertFromSync(e E) bool
}

// RemoteTable is the remote side of a reconciliation pass. Entities
// returned by ListEntities carry the row's updated_at as Modified().
type RemoteTable[E types.Entity] interface {
	Table() string
	ListEntities(ctx context.Context) ([]E, error)
	InsertRow(ctx context.Context, e E) error
	PushRow(ctx context.Context, e E) error
}

// Reconciler runs the last-write-wins pass for one entity type.
type Reconciler[E types.Entity] struct {
	local  LocalStore[E]
	remote RemoteTable[E]
}

// NewReconciler creates a reconciler between a local store and its remote table.
func NewReconciler[E types.Entity](local LocalStore[E], remote RemoteTable[E]) *Reconciler[E] {
	return &Reconciler[E]{local: local, remote: remote}
}

// Table returns the reconciled table name.
func (r *Reconciler[E]) Table() string { return r.remote.Table() }

// Reconcile compares every local entity with its remote row by id. The side
// with the strictly newer timestamp replaces the other as a whole; equal
// timestamps leave both sides untouched. Row failures are collected and do
// not stop the pass.
func (r *Reconciler[E]) Reconcile(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, err := r.remote.ListEntities(ctx)
	if err != nil {
		return stats, fmt.Errorf("list remote %s: %w", r.Table(), err)
	}
	remoteByID := make(map[string]E, len(rows))
	for _, row := range rows {
		remoteByID[row.EntityID()] = row
	}

	local := r.local.All()
	localByID := make(map[string]E, len(local))
	var errs error

	for _, e := range local {
		id := e.EntityID()
		localByID[id] = e
		row, ok := remoteByID[id]
		switch {
		case !ok:
			if err := r.remote.InsertRow(ctx, e); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("insert %s %s: %w", r.Table(), id, err))
				continue
			}
			stats.Inserted++
		case e.Modified().After(row.Modified()):
			if err := r.remote.PushRow(ctx, e); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("push %s %s: %w", r.Table(), id, err))
				continue
			}
			stats.Pushed++
		}
	}

	for _, row := range rows {
		e, ok := localByID[row.EntityID()]
		switch {
		case !ok:
			if r.local.UpsertFromSync(row) {
				stats.Pulled++
			}
		case row.Modified().After(e.Modified()):
			if r.local.UpsertFromSync(row) {
				stats.Overwritten++
			}
		}
	}

	return stats, errs
}
