package types

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Entity is the common shape of every synced domain record.
type Entity interface {
	EntityID() string
	Created() time.Time
	Modified() time.Time
}

// Now returns the current time in UTC at millisecond precision, the
// resolution that survives RFC 3339 and timestamptz round-trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewID returns a fresh client-generated entity id.
func NewID() string {
	return ulid.Make().String()
}

// Lifecycle controls visibility independently of status
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecyclePaused   Lifecycle = "paused"
	LifecycleArchived Lifecycle = "archived"
)

// Valid reports whether l is a known lifecycle value.
func (l Lifecycle) Valid() bool {
	switch l {
	case LifecycleActive, LifecyclePaused, LifecycleArchived:
		return true
	}
	return false
}

// InsightType classifies a generated insight
type InsightType string

const (
	InsightTip        InsightType = "tip"
	InsightWarning    InsightType = "warning"
	InsightSuggestion InsightType = "suggestion"
	InsightPraise     InsightType = "praise"
)

// InsightPriority orders insights for display
type InsightPriority string

const (
	InsightPriorityLow    InsightPriority = "low"
	InsightPriorityMedium InsightPriority = "medium"
	InsightPriorityHigh   InsightPriority = "high"
)

// Insight is a locally generated productivity message. Never synced.
type Insight struct {
	ID        string          `json:"id"`
	Type      InsightType     `json:"type"`
	Message   string          `json:"message"`
	Priority  InsightPriority `json:"priority"`
	TaskID    string          `json:"task_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Dismissed bool            `json:"dismissed"`
}

// ProductivityState summarizes today's completions
type ProductivityState string

const (
	ProductivityProductive   ProductivityState = "productive"
	ProductivityPartial      ProductivityState = "partial"
	ProductivityUnproductive ProductivityState = "unproductive"
)

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string     `json:"status"`
	Version  string     `json:"version"`
	UserID   string     `json:"user_id,omitempty"`
	Online   bool       `json:"online"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
