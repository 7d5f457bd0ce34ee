package store

import (
	"context"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// Store defines the local durable storage contract: whole-collection
// snapshots keyed by store name, a small metadata table and the
// outbound mirror queue.
type Store interface {
	SaveCollection(ctx context.Context, name string, payload []byte) error
	LoadCollection(ctx context.Context, name string) ([]byte, error)
	DeleteCollection(ctx context.Context, name string) error

	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
	DeleteMeta(ctx context.Context, key string) error

	AppendOutbox(ctx context.Context, entry *ffsync.OutboxEntry) (int64, error)
	PendingOutbox(ctx context.Context, limit int) ([]ffsync.OutboxEntry, error)
	DeleteOutbox(ctx context.Context, sequence int64) error
	CountOutbox(ctx context.Context) (int64, error)
	ClearOutbox(ctx context.Context) error

	Close() error
}

// Meta keys
const (
	MetaLastUserID = "last_user_id"
)
