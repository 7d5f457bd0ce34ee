package types

import (
	"sort"
	"strings"
	"time"
)

// NoteCategory is one of six fixed note buckets
type NoteCategory string

const (
	NoteCategoryPersonal NoteCategory = "personal"
	NoteCategoryWork     NoteCategory = "work"
	NoteCategoryIdeas    NoteCategory = "ideas"
	NoteCategoryTodo     NoteCategory = "todo"
	NoteCategoryLearning NoteCategory = "learning"
	NoteCategoryOther    NoteCategory = "other"
)

// Valid reports whether c is a known note category.
func (c NoteCategory) Valid() bool {
	switch c {
	case NoteCategoryPersonal, NoteCategoryWork, NoteCategoryIdeas,
		NoteCategoryTodo, NoteCategoryLearning, NoteCategoryOther:
		return true
	}
	return false
}

// SaveStatus tracks whether a note was explicitly saved
type SaveStatus string

const (
	SaveStatusSaved SaveStatus = "saved"
	SaveStatusDraft SaveStatus = "draft"
)

// NoteAudio references a recorded voice memo
type NoteAudio struct {
	URL        string    `json:"url"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Note is a free-form text record owned by the note store.
type Note struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content,omitempty"`
	Category   NoteCategory `json:"category"`
	Tags       []string     `json:"tags"`
	Audio      *NoteAudio   `json:"audio,omitempty"`
	SaveStatus SaveStatus   `json:"save_status,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (n Note) EntityID() string    { return n.ID }
func (n Note) Created() time.Time  { return n.CreatedAt }
func (n Note) Modified() time.Time { return n.UpdatedAt }

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	c := n
	c.Tags = cloneStrings(n.Tags)
	if n.Audio != nil {
		a := *n.Audio
		c.Audio = &a
	}
	return c
}

// Signature identifies notes with identical user-visible content.
func (n Note) Signature() string {
	tags := cloneStrings(n.Tags)
	sort.Strings(tags)
	return strings.Join([]string{n.Title, n.Content, string(n.Category), strings.Join(tags, ",")}, "\x1f")
}

// NotePatch carries a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title      *string       `json:"title,omitempty"`
	Content    *string       `json:"content,omitempty"`
	Category   *NoteCategory `json:"category,omitempty"`
	Tags       *[]string     `json:"tags,omitempty"`
	Audio      *NoteAudio    `json:"audio,omitempty"`
	ClearAudio bool          `json:"clear_audio,omitempty"`
	SaveStatus *SaveStatus   `json:"save_status,omitempty"`
}

// Apply merges p into n and stamps UpdatedAt.
func (n *Note) Apply(p NotePatch, now time.Time) NotePatch {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	if p.Tags != nil {
		n.Tags = cloneStrings(*p.Tags)
	}
	if p.ClearAudio {
		n.Audio = nil
	} else if p.Audio != nil {
		a := *p.Audio
		n.Audio = &a
	}
	if p.SaveStatus != nil {
		n.SaveStatus = *p.SaveStatus
	}
	n.UpdatedAt = now
	return p
}
