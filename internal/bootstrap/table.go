package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hyperengineering/focusflow/internal/types"
)

// Source is the remote side of a bootstrap target.
type Source[E types.Entity] interface {
	Table() string
	ListEntities(ctx context.Context) ([]E, error)
	DeleteRow(ctx context.Context, id string) error
}

// Sink is the entity store a bootstrap target replaces.
type Sink[E types.Entity] interface {
	SetAll(entities []E)
	Clear()
}

// Table loads one remote table into one store. When Signature is set,
// rows sharing a signature are collapsed to the newest one and the
// others are deleted remotely.
type Table[E types.Entity] struct {
	source    Source[E]
	sink      Sink[E]
	Signature func(E) string
}

// NewTable creates a bootstrap target.
func NewTable[E types.Entity](source Source[E], sink Sink[E]) *Table[E] {
	return &Table[E]{source: source, sink: sink}
}

// WithSignature enables de-duplication by sig.
func (t *Table[E]) WithSignature(sig func(E) string) *Table[E] {
	t.Signature = sig
	return t
}

func (t *Table[E]) Name() string { return t.source.Table() }

func (t *Table[E]) Clear() { t.sink.Clear() }

// Fetch lists and decodes the remote rows. The returned commit replaces
// the store's collection.
func (t *Table[E]) Fetch(ctx context.Context) (func(), error) {
	rows, err := t.source.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", t.Name(), err)
	}
	if t.Signature != nil {
		var losers []string
		rows, losers = dedupe(rows, t.Signature)
		for _, id := range losers {
			if err := t.source.DeleteRow(ctx, id); err != nil {
				slog.Warn("failed to delete duplicate row",
					"component", "bootstrap",
					"action", "dedupe",
					"table", t.Name(),
					"entity_id", id,
					"error", err,
				)
			}
		}
	}
	return func() { t.sink.SetAll(rows) }, nil
}

// dedupe keeps the newest row per signature, preserving input order of
// the winners, and returns the ids of the dropped rows.
func dedupe[E types.Entity](rows []E, sig func(E) string) ([]E, []string) {
	winner := make(map[string]int, len(rows))
	for i, r := range rows {
		s := sig(r)
		j, ok := winner[s]
		if !ok || r.Modified().After(rows[j].Modified()) {
			winner[s] = i
		}
	}
	kept := make([]E, 0, len(winner))
	var losers []string
	for i, r := range rows {
		if winner[sig(r)] == i {
			kept = append(kept, r)
		} else {
			losers = append(losers, r.EntityID())
		}
	}
	return kept, losers
}
