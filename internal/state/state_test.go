package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperengineering/focusflow/internal/store"
)

// memPersister is an in-memory Persister.
type memPersister struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves int
	err   error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (m *memPersister) SaveCollection(_ context.Context, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.data[name] = append([]byte(nil), payload...)
	return nil
}

func (m *memPersister) LoadCollection(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, store.ErrNotFound)
	}
	return b, nil
}

// mirrorOp records one replication request.
type mirrorOp struct {
	Op        string
	Table     string
	ID        string
	Payload   any
	UpdatedAt time.Time
}

// recordingMirror captures mirror calls in order.
type recordingMirror struct {
	mu  sync.Mutex
	ops []mirrorOp
}

func (r *recordingMirror) MirrorInsert(table, id string, entity any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, mirrorOp{Op: "insert", Table: table, ID: id, Payload: entity})
}

func (r *recordingMirror) MirrorUpdate(table, id string, patch any, updatedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, mirrorOp{Op: "update", Table: table, ID: id, Payload: patch, UpdatedAt: updatedAt})
}

func (r *recordingMirror) MirrorDelete(table, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, mirrorOp{Op: "delete", Table: table, ID: id})
}

func (r *recordingMirror) Ops() []mirrorOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mirrorOp(nil), r.ops...)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testOptions(p *memPersister, m *recordingMirror, clock *fakeClock) Options {
	return Options{Persister: p, Mirror: m, Now: clock.Now, Location: time.UTC}
}
