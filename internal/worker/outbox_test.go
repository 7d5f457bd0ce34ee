package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/focusflow/internal/state"
	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// mockOutboxStore implements OutboxStore in memory
type mockOutboxStore struct {
	mu      sync.Mutex
	seq     int64
	entries []ffsync.OutboxEntry
}

func (m *mockOutboxStore) AppendOutbox(_ context.Context, e *ffsync.OutboxEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.Sequence = m.seq
	m.entries = append(m.entries, *e)
	return m.seq, nil
}

func (m *mockOutboxStore) PendingOutbox(_ context.Context, limit int) ([]ffsync.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if n > limit {
		n = limit
	}
	return append([]ffsync.OutboxEntry{}, m.entries[:n]...), nil
}

func (m *mockOutboxStore) DeleteOutbox(_ context.Context, seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.Sequence == seq {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockOutboxStore) CountOutbox(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *mockOutboxStore) ClearOutbox(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// recordingApplier records applied entries and optionally fails
type recordingApplier struct {
	mu      sync.Mutex
	applied []ffsync.OutboxEntry
	err     error
}

func (r *recordingApplier) Apply(_ context.Context, e ffsync.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, e)
	return r.err
}

func (r *recordingApplier) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.applied))
	for i, e := range r.applied {
		out[i] = e.Operation + ":" + e.EntityID
	}
	return out
}

// blockingApplier never completes until ctx is cancelled, simulating a
// permanently pending remote call.
type blockingApplier struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingApplier) Apply(ctx context.Context, _ ffsync.OutboxEntry) error {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestOutboxWorker_DrainsInIssuanceOrder(t *testing.T) {
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 2, time.Minute)
	tasks := &recordingApplier{}
	notes := &recordingApplier{}
	w.Register(ffsync.TableTasks, tasks)
	w.Register(ffsync.TableNotes, notes)

	// Given: An insert, update and delete for the same id plus an unrelated note
	w.MirrorInsert(ffsync.TableTasks, "t1", types.Task{ID: "t1", Title: "a"})
	title := "b"
	w.MirrorUpdate(ffsync.TableTasks, "t1", types.TaskPatch{Title: &title}, time.Now())
	w.MirrorInsert(ffsync.TableNotes, "n1", types.Note{ID: "n1"})
	w.MirrorDelete(ffsync.TableTasks, "t1")

	// When: The outbox is drained
	n := w.Drain(context.Background())

	// Then: Every entry is applied once, in order per table
	if n != 4 {
		t.Errorf("processed = %d, want 4", n)
	}
	want := []string{"insert:t1", "update:t1", "delete:t1"}
	got := tasks.ops()
	if len(got) != len(want) {
		t.Fatalf("task ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if len(notes.ops()) != 1 {
		t.Errorf("note ops = %v", notes.ops())
	}
	if w.Pending(context.Background()) != 0 {
		t.Error("outbox should be empty after drain")
	}
}

func TestOutboxWorker_UpdateCarriesPatchAndTimestamp(t *testing.T) {
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 10, time.Minute)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	title := "renamed"

	w.MirrorUpdate(ffsync.TableTasks, "t1", types.TaskPatch{Title: &title}, at)

	entries, _ := store.PendingOutbox(context.Background(), 10)
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.UpdatedAt == nil || !e.UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", e.UpdatedAt, at)
	}
	var p types.TaskPatch
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.Title == nil || *p.Title != "renamed" {
		t.Errorf("payload title = %v", p.Title)
	}
}

func TestOutboxWorker_FailedEntryIsDropped(t *testing.T) {
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 10, time.Minute)
	w.Register(ffsync.TableTasks, &recordingApplier{err: errors.New("network down")})

	w.MirrorDelete(ffsync.TableTasks, "t1")
	w.MirrorDelete("unknown", "x")
	w.Drain(context.Background())

	if got := w.Pending(context.Background()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

func TestOutboxWorker_CancelledEntryStaysQueued(t *testing.T) {
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 10, time.Minute)
	blocker := &blockingApplier{started: make(chan struct{})}
	w.Register(ffsync.TableTasks, blocker)
	w.MirrorDelete(ffsync.TableTasks, "t1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() { done <- w.Drain(ctx) }()
	<-blocker.started
	cancel()

	if n := <-done; n != 0 {
		t.Errorf("processed = %d, want 0", n)
	}
	if got := w.Pending(context.Background()); got != 1 {
		t.Errorf("pending = %d, want 1", got)
	}
}

func TestOutboxWorker_ClearDiscardsQueue(t *testing.T) {
	w := NewOutboxWorker(&mockOutboxStore{}, 10, time.Minute)
	w.MirrorDelete(ffsync.TableNotes, "n1")
	w.MirrorDelete(ffsync.TableNotes, "n2")

	if err := w.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := w.Pending(context.Background()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}

func TestOptimisticWrites_PermanentlyPendingRemote(t *testing.T) {
	// Given: A task store mirrored through a worker whose remote never answers
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 10, time.Minute)
	blocker := &blockingApplier{started: make(chan struct{})}
	w.Register(ffsync.TableTasks, blocker)
	w.Register(ffsync.TableNotes, blocker)
	tasks := state.NewTaskStore(state.Options{Mirror: w})
	notes := state.NewNoteStore(state.Options{Mirror: w})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// When: Entities are added while the first remote call hangs
	first := tasks.Add(types.Task{Title: "first"})
	<-blocker.started
	second := tasks.Add(types.Task{Title: "second"})
	note := notes.Add(types.Note{Title: "n"})

	// Then: Reads reflect every mutation immediately
	if tasks.Len() != 2 || notes.Len() != 1 {
		t.Fatalf("tasks = %d, notes = %d", tasks.Len(), notes.Len())
	}

	title := "renamed"
	if _, ok := tasks.Update(second.ID, types.TaskPatch{Title: &title}); !ok {
		t.Fatal("update not applied")
	}
	got, _ := tasks.Get(second.ID)
	if got.Title != "renamed" {
		t.Errorf("title = %q, want renamed", got.Title)
	}

	if !tasks.Delete(first.ID) || !notes.Delete(note.ID) {
		t.Fatal("delete not applied")
	}
	if _, ok := tasks.Get(first.ID); ok {
		t.Error("deleted task still visible")
	}
	if notes.Len() != 0 {
		t.Error("deleted note still visible")
	}

	// And: The mirror ops remain queued behind the hung call
	if got := w.Pending(context.Background()); got < 4 {
		t.Errorf("pending = %d, want at least 4", got)
	}
}

type switchableUser struct {
	mu  sync.Mutex
	uid string
}

func (u *switchableUser) CurrentUserID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uid
}

func (u *switchableUser) set(uid string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uid = uid
}

func TestOutboxWorker_StampsQueuingUser(t *testing.T) {
	store := &mockOutboxStore{}
	users := &switchableUser{uid: "u1"}
	w := NewOutboxWorker(store, 10, time.Minute).WithUsers(users)

	w.MirrorDelete(ffsync.TableTasks, "t1")
	users.set("u2")
	w.MirrorDelete(ffsync.TableTasks, "t2")

	entries, _ := store.PendingOutbox(context.Background(), 10)
	if len(entries) != 2 || entries[0].UserID != "u1" || entries[1].UserID != "u2" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestOutboxWorker_UserChangedEntryIsDropped(t *testing.T) {
	store := &mockOutboxStore{}
	w := NewOutboxWorker(store, 10, time.Minute)
	w.Register(ffsync.TableTasks, &recordingApplier{err: ffsync.ErrUserChanged})
	w.MirrorDelete(ffsync.TableTasks, "t1")

	if n := w.Drain(context.Background()); n != 1 {
		t.Errorf("processed = %d, want 1", n)
	}
	if got := w.Pending(context.Background()); got != 0 {
		t.Errorf("pending = %d, want 0", got)
	}
}
