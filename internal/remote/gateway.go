package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// UserResolver reports the authenticated user. Empty means signed out.
type UserResolver interface {
	CurrentUserID() string
}

// Mapper translates one entity type to and from remote columns.
type Mapper[E types.Entity, P any] interface {
	Encode(e E) Columns
	EncodePatch(p P) Columns
	Decode(r Record) E
}

// Gateway is the per-entity adapter between a local store and its remote
// table. With no authenticated user every operation is a silent no-op.
type Gateway[E types.Entity, P any] struct {
	backend Backend
	schema  TableSchema
	mapper  Mapper[E, P]
	users   UserResolver
}

// NewGateway creates a gateway for one table.
func NewGateway[E types.Entity, P any](backend Backend, schema TableSchema, mapper Mapper[E, P], users UserResolver) *Gateway[E, P] {
	return &Gateway[E, P]{backend: backend, schema: schema, mapper: mapper, users: users}
}

// owner returns the user rows are read and written for. A context pinned
// to a different user than the signed-in one fails with ErrUserChanged.
func (g *Gateway[E, P]) owner(ctx context.Context) (string, error) {
	uid := g.users.CurrentUserID()
	if pinned, ok := ffsync.UserFromContext(ctx); ok && pinned != uid {
		return "", ffsync.ErrUserChanged
	}
	return uid, nil
}

// Table returns the remote table name.
func (g *Gateway[E, P]) Table() string { return g.schema.Name }

// InsertRow creates the remote row for e if it does not exist yet.
func (g *Gateway[E, P]) InsertRow(ctx context.Context, e E) error {
	uid, err := g.owner(ctx)
	if err != nil || uid == "" {
		return err
	}
	return g.backend.Insert(ctx, g.schema, Record{
		LocalID:   e.EntityID(),
		UserID:    uid,
		CreatedAt: e.Created(),
		UpdatedAt: e.Modified(),
		Columns:   g.mapper.Encode(e),
	})
}

// PushRow overwrites every mutable column of the remote row with e.
func (g *Gateway[E, P]) PushRow(ctx context.Context, e E) error {
	uid, err := g.owner(ctx)
	if err != nil || uid == "" {
		return err
	}
	return g.backend.Update(ctx, g.schema, uid, e.EntityID(), g.mapper.Encode(e), e.Modified())
}

// UpdateRow writes the fields named by p and the new timestamp.
func (g *Gateway[E, P]) UpdateRow(ctx context.Context, id string, p P, updatedAt time.Time) error {
	uid, err := g.owner(ctx)
	if err != nil || uid == "" {
		return err
	}
	return g.backend.Update(ctx, g.schema, uid, id, g.mapper.EncodePatch(p), updatedAt)
}

// DeleteRow removes the remote row for id.
func (g *Gateway[E, P]) DeleteRow(ctx context.Context, id string) error {
	uid, err := g.owner(ctx)
	if err != nil || uid == "" {
		return err
	}
	return g.backend.Delete(ctx, g.schema, uid, id)
}

// ListRows returns every row the current user owns, newest first.
func (g *Gateway[E, P]) ListRows(ctx context.Context) ([]Record, error) {
	uid, err := g.owner(ctx)
	if err != nil || uid == "" {
		return nil, err
	}
	return g.backend.Select(ctx, g.schema, uid)
}

// ListEntities returns every row the current user owns decoded to entities.
func (g *Gateway[E, P]) ListEntities(ctx context.Context) ([]E, error) {
	rows, err := g.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]E, 0, len(rows))
	for _, r := range rows {
		out = append(out, g.mapper.Decode(r))
	}
	return out, nil
}

// Decode maps a remote row to a local entity with permissive defaults.
func (g *Gateway[E, P]) Decode(r Record) E {
	return g.mapper.Decode(r)
}

// Apply replays one queued mirror operation for the user who queued it.
// Entries queued by anyone other than the signed-in user fail with
// ErrUserChanged.
func (g *Gateway[E, P]) Apply(ctx context.Context, entry ffsync.OutboxEntry) error {
	ctx = ffsync.WithUser(ctx, entry.UserID)
	switch entry.Operation {
	case ffsync.OperationInsert:
		var e E
		if err := json.Unmarshal(entry.Payload, &e); err != nil {
			return fmt.Errorf("decode %s insert payload: %w", g.schema.Name, err)
		}
		return g.InsertRow(ctx, e)
	case ffsync.OperationUpdate:
		var p P
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return fmt.Errorf("decode %s update payload: %w", g.schema.Name, err)
		}
		updatedAt := entry.CreatedAt
		if entry.UpdatedAt != nil {
			updatedAt = *entry.UpdatedAt
		}
		return g.UpdateRow(ctx, entry.EntityID, p, updatedAt)
	case ffsync.OperationDelete:
		return g.DeleteRow(ctx, entry.EntityID)
	default:
		return fmt.Errorf("unknown outbox operation %q", entry.Operation)
	}
}

// recordTimes applies the fallbacks for missing row timestamps: created_at
// falls back to now, updated_at to created_at.
func recordTimes(r Record) (created, updated time.Time) {
	created = r.CreatedAt
	if created.IsZero() {
		created = types.Now()
	}
	updated = r.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	return created.UTC(), updated.UTC()
}

// Gateways for the three mirrored entity types.
type (
	TaskGateway = Gateway[types.Task, types.TaskPatch]
	NoteGateway = Gateway[types.Note, types.NotePatch]
	GoalGateway = Gateway[types.Goal, types.GoalPatch]
)

// NewTaskGateway creates the tasks table gateway.
func NewTaskGateway(b Backend, users UserResolver) *TaskGateway {
	return NewGateway[types.Task, types.TaskPatch](b, TaskSchema, TaskMapper{}, users)
}

// NewNoteGateway creates the notes table gateway.
func NewNoteGateway(b Backend, users UserResolver) *NoteGateway {
	return NewGateway[types.Note, types.NotePatch](b, NoteSchema, NoteMapper{}, users)
}

// NewGoalGateway creates the goals table gateway.
func NewGoalGateway(b Backend, users UserResolver) *GoalGateway {
	return NewGateway[types.Goal, types.GoalPatch](b, GoalSchema, GoalMapper{}, users)
}
