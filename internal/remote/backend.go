package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Backend is the remote relational store. Every call is scoped to one user.
type Backend interface {
	// Select returns all rows of the table owned by userID, newest first.
	Select(ctx context.Context, schema TableSchema, userID string) ([]Record, error)
	// Insert adds rec unless a row with the same (user_id, local_id) exists.
	Insert(ctx context.Context, schema TableSchema, rec Record) error
	// Update overwrites the given columns and updated_at of one row.
	Update(ctx context.Context, schema TableSchema, userID, localID string, cols Columns, updatedAt time.Time) error
	// Delete removes one row. Missing rows are not an error.
	Delete(ctx context.Context, schema TableSchema, userID, localID string) error
}

// MemoryBackend is an in-process Backend used when no database is
// configured and in tests.
type MemoryBackend struct {
	mu       sync.Mutex
	rows     map[string]map[string]map[string]Record // table -> user -> local id
	failures map[string]error
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		rows:     make(map[string]map[string]map[string]Record),
		failures: make(map[string]error),
	}
}

// SetFailure makes every operation on table return err. A nil err clears it.
func (m *MemoryBackend) SetFailure(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, table)
		return
	}
	m.failures[table] = err
}

// Put stores rec as-is, replacing any existing row. Intended for seeding.
func (m *MemoryBackend) Put(table string, rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRows(table, rec.UserID)[rec.LocalID] = cloneRecord(rec)
}

// Get returns one row, if present.
func (m *MemoryBackend) Get(table, userID, localID string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.userRows(table, userID)[localID]
	return cloneRecord(rec), ok
}

// Count returns the number of rows a user owns in table.
func (m *MemoryBackend) Count(table, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.userRows(table, userID))
}

func (m *MemoryBackend) Select(_ context.Context, schema TableSchema, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[schema.Name]; err != nil {
		return nil, err
	}
	rows := m.userRows(schema.Name, userID)
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].LocalID > out[j].LocalID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryBackend) Insert(_ context.Context, schema TableSchema, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[schema.Name]; err != nil {
		return err
	}
	if err := checkColumns(schema, rec.Columns); err != nil {
		return err
	}
	rows := m.userRows(schema.Name, rec.UserID)
	if _, exists := rows[rec.LocalID]; exists {
		return nil
	}
	rows[rec.LocalID] = cloneRecord(rec)
	return nil
}

func (m *MemoryBackend) Update(_ context.Context, schema TableSchema, userID, localID string, cols Columns, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[schema.Name]; err != nil {
		return err
	}
	if err := checkColumns(schema, cols); err != nil {
		return err
	}
	rows := m.userRows(schema.Name, userID)
	rec, ok := rows[localID]
	if !ok {
		return nil
	}
	rec = cloneRecord(rec)
	for k, v := range cols {
		rec.Columns[k] = v
	}
	rec.UpdatedAt = updatedAt
	rows[localID] = rec
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, schema TableSchema, userID, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[schema.Name]; err != nil {
		return err
	}
	delete(m.userRows(schema.Name, userID), localID)
	return nil
}

func (m *MemoryBackend) userRows(table, userID string) map[string]Record {
	byUser, ok := m.rows[table]
	if !ok {
		byUser = make(map[string]map[string]Record)
		m.rows[table] = byUser
	}
	rows, ok := byUser[userID]
	if !ok {
		rows = make(map[string]Record)
		byUser[userID] = rows
	}
	return rows
}

func cloneRecord(r Record) Record {
	c := r
	c.Columns = make(Columns, len(r.Columns))
	for k, v := range r.Columns {
		if s, ok := v.([]string); ok {
			v = append([]string{}, s...)
		}
		c.Columns[k] = v
	}
	return c
}

func checkColumns(schema TableSchema, cols Columns) error {
	for name := range cols {
		if _, ok := schema.Column(name); !ok {
			return fmt.Errorf("%s.%s: %w", schema.Name, name, ErrUnknownColumn)
		}
	}
	return nil
}
