package state

import (
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// NoteStore owns the note collection.
type NoteStore struct {
	*core[types.Note, types.NotePatch]
}

// NewNoteStore creates an empty note store.
func NewNoteStore(opts Options) *NoteStore {
	s := &NoteStore{core: &core[types.Note, types.NotePatch]{}}
	s.setup(ffsync.TableNotes, opts, hooks[types.Note, types.NotePatch]{
		clone: types.Note.Clone,
		apply: (*types.Note).Apply,
		create: func(n *types.Note, id string, now time.Time) {
			n.ID = id
			n.CreatedAt = now
			n.UpdatedAt = now
			if n.Category == "" {
				n.Category = types.NoteCategoryPersonal
			}
			if n.Tags == nil {
				n.Tags = []string{}
			}
			if n.SaveStatus == "" {
				n.SaveStatus = types.SaveStatusSaved
			}
		},
	})
	return s
}

// ByCategory returns notes in category c.
func (s *NoteStore) ByCategory(c types.NoteCategory) []types.Note {
	return s.filter(func(n types.Note) bool { return n.Category == c })
}
