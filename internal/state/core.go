package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hyperengineering/focusflow/internal/store"
	"github.com/hyperengineering/focusflow/internal/types"
)

// hooks adapt the shared collection logic to one entity type.
type hooks[E types.Entity, P any] struct {
	clone func(E) E
	apply func(*E, P, time.Time) P
	// create assigns identity, timestamps and defaults to a new entity.
	create func(*E, string, time.Time)
	// encode and decode (de)serialize the persisted payload; mu is held.
	encode func() any
	decode func([]byte) error
	// Extra cleanup; mu is held.
	onClear  func()
	onDelete func(id string)
}

// core is the collection shared by every entity store. Mutations run
// under mu, persist, then enqueue a mirror op before releasing mu so
// outbound ops are issued in mutation order.
type core[E types.Entity, P any] struct {
	mu    sync.RWMutex
	table string
	items []E
	opts  Options
	h     hooks[E, P]
}

func (c *core[E, P]) setup(table string, opts Options, h hooks[E, P]) {
	c.table = table
	c.opts = opts.withDefaults("state." + table)
	c.h = h
	if c.h.encode == nil {
		c.h.encode = func() any { return c.items }
	}
	if c.h.decode == nil {
		c.h.decode = func(b []byte) error { return json.Unmarshal(b, &c.items) }
	}
}

// Table returns the collection name shared with the remote mirror.
func (c *core[E, P]) Table() string { return c.table }

// Load revives the persisted collection. A missing collection is not an error.
func (c *core[E, P]) Load(ctx context.Context) error {
	if c.opts.Persister == nil {
		return nil
	}
	payload, err := c.opts.Persister.LoadCollection(ctx, c.table)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", c.table, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.h.decode(payload); err != nil {
		return fmt.Errorf("decode %s: %w", c.table, err)
	}
	return nil
}

// SetAll replaces the whole collection. No validation; last caller wins.
func (c *core[E, P]) SetAll(entities []E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]E, 0, len(entities))
	for _, e := range entities {
		c.items = append(c.items, c.h.clone(e))
	}
	c.persistLocked()
}

// Clear empties the collection and any dependent state.
func (c *core[E, P]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	if c.h.onClear != nil {
		c.h.onClear()
	}
	c.persistLocked()
}

// Add assigns a new id and timestamps, prepends e and requests a remote insert.
func (c *core[E, P]) Add(e E) E {
	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.h.clone(e)
	c.h.create(&e, types.NewID(), c.opts.Now())
	c.items = append([]E{e}, c.items...)
	c.persistLocked()
	c.opts.Mirror.MirrorInsert(c.table, e.EntityID(), c.h.clone(e))
	return c.h.clone(e)
}

// Update merges p into the entity with id and requests a remote update.
// Returns false if no such entity exists.
func (c *core[E, P]) Update(id string, p P) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(id, p)
}

func (c *core[E, P]) updateLocked(id string, p P) (E, bool) {
	i := c.indexLocked(id)
	if i < 0 {
		var zero E
		return zero, false
	}
	e := c.h.clone(c.items[i])
	now := c.opts.Now()
	effective := c.h.apply(&e, p, now)
	c.items[i] = e
	c.persistLocked()
	c.opts.Mirror.MirrorUpdate(c.table, id, effective, e.Modified())
	return c.h.clone(e), true
}

// Delete removes the entity with id, cascades and requests a remote delete.
func (c *core[E, P]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	if c.h.onDelete != nil {
		c.h.onDelete(id)
	}
	c.persistLocked()
	c.opts.Mirror.MirrorDelete(c.table, id)
	return true
}

// UpsertFromSync inserts e from a remote row, or replaces the local copy
// when e is strictly newer, without mirroring it back. Reports whether the
// collection changed.
func (c *core[E, P]) UpsertFromSync(e E) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(e.EntityID())
	if i >= 0 && !e.Modified().After(c.items[i].Modified()) {
		return false
	}
	e = c.h.clone(e)
	if i >= 0 {
		c.items[i] = e
	} else {
		c.items = append([]E{e}, c.items...)
	}
	c.persistLocked()
	return true
}

// All returns a copy of the collection in display order.
func (c *core[E, P]) All() []E {
	return c.filter(nil)
}

// Get returns a copy of the entity with id.
func (c *core[E, P]) Get(id string) (E, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		var zero E
		return zero, false
	}
	return c.h.clone(c.items[i]), true
}

// Today returns entities created on the current local calendar day.
func (c *core[E, P]) Today() []E {
	now := c.opts.Now()
	return c.filter(func(e E) bool { return sameDay(e.Created(), now, c.opts.Location) })
}

// Len returns the collection size.
func (c *core[E, P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *core[E, P]) filter(keep func(E) bool) []E {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]E, 0, len(c.items))
	for _, e := range c.items {
		if keep == nil || keep(e) {
			out = append(out, c.h.clone(e))
		}
	}
	return out
}

func (c *core[E, P]) indexLocked(id string) int {
	for i, e := range c.items {
		if e.EntityID() == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the collection to local storage. Failures are
// logged; local state stays authoritative.
func (c *core[E, P]) persistLocked() {
	if c.opts.Persister == nil {
		return
	}
	payload, err := json.Marshal(c.h.encode())
	if err != nil {
		c.opts.Logger.Error("encode collection failed", "action", "persist", "error", err)
		return
	}
	if err := c.opts.Persister.SaveCollection(context.Background(), c.table, payload); err != nil {
		c.opts.Logger.Error("persist collection failed", "action", "persist", "error", err)
	}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
