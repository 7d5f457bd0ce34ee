// Package state holds the authoritative in-process entity collections.
// Every mutation is applied synchronously, persisted locally and handed
// to a Mirror for asynchronous remote replication.
package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/focusflow/internal/types"
)

// Persister stores whole serialized collections by name.
type Persister interface {
	SaveCollection(ctx context.Context, name string, payload []byte) error
	LoadCollection(ctx context.Context, name string) ([]byte, error)
}

// Mirror receives remote replication requests. Implementations must not
// block on the network.
type Mirror interface {
	MirrorInsert(table, id string, entity any)
	MirrorUpdate(table, id string, patch any, updatedAt time.Time)
	MirrorDelete(table, id string)
}

// Options configures an entity store. Zero values fall back to defaults.
type Options struct {
	Persister Persister
	Mirror    Mirror
	Logger    *slog.Logger
	Now       func() time.Time
	Location  *time.Location
}

func (o Options) withDefaults(component string) Options {
	if o.Mirror == nil {
		o.Mirror = NopMirror{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", component)
	if o.Now == nil {
		o.Now = types.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// NopMirror discards replication requests.
type NopMirror struct{}

func (NopMirror) MirrorInsert(string, string, any)             {}
func (NopMirror) MirrorUpdate(string, string, any, time.Time) {}
func (NopMirror) MirrorDelete(string, string)                 {}
