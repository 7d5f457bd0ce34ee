// Package remote mirrors entity collections into per-user rows of a
// relational backend. Rows are keyed by (user_id, local_id) where
// local_id is the client-generated entity id.
package remote

import (
	"encoding/json"
	"errors"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
)

// ErrUnknownColumn is returned when a write names a column the table schema
// does not declare.
var ErrUnknownColumn = errors.New("unknown column")

// ColumnKind selects how a column value is bound and scanned.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindFloat
	KindTime
	KindTextArray
	KindJSON
)

// Column is one mutable column of a mirrored table.
type Column struct {
	Name string
	Kind ColumnKind
}

// TableSchema declares the mutable columns of a remote table. The key and
// timestamp columns (local_id, user_id, created_at, updated_at) are implied.
type TableSchema struct {
	Name    string
	Columns []Column
}

// Column looks up a declared column by name.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Record is one remote row.
type Record struct {
	LocalID   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Columns   Columns
}

// Columns maps column names to values. Values are nil (SQL NULL), string,
// int64, float64, time.Time, []string or json.RawMessage. Getters accept
// the looser shapes a driver or JSON decoding may produce.
type Columns map[string]any

// String returns the text value of name, or "" when NULL or absent.
func (c Columns) String(name string) string {
	switch v := c[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Int returns the integer value of name, or 0 when NULL or absent.
func (c Columns) Int(name string) int {
	switch v := c[name].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the numeric value of name, or 0 when NULL or absent.
func (c Columns) Float(name string) float64 {
	switch v := c[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Time returns the timestamp value of name. ISO-8601 strings are parsed.
func (c Columns) Time(name string) *time.Time {
	switch v := c[name].(type) {
	case time.Time:
		t := v.UTC()
		return &t
	case *time.Time:
		if v == nil {
			return nil
		}
		t := v.UTC()
		return &t
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// Strings returns the text array value of name, never nil.
func (c Columns) Strings(name string) []string {
	switch v := c[name].(type) {
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return []string{}
}

// JSON decodes the JSON value of name into dst. Returns false when the
// column is NULL, absent or malformed.
func (c Columns) JSON(name string, dst any) bool {
	var raw []byte
	switch v := c[name].(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return false
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func optText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optInt(n int) any {
	if n == 0 {
		return nil
	}
	return int64(n)
}

func tags(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func rawJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return json.RawMessage(b)
}

// Schemas of the mirrored tables.
var (
	TaskSchema = TableSchema{
		Name: ffsync.TableTasks,
		Columns: []Column{
			{"title", KindText},
			{"description", KindText},
			{"priority", KindText},
			{"status", KindText},
			{"lifecycle", KindText},
			{"ai_recommendation", KindText},
			{"ai_reason", KindText},
			{"due_date", KindTime},
			{"completed_at", KindTime},
			{"estimated_minutes", KindInt},
			{"actual_minutes", KindInt},
			{"tags", KindTextArray},
			{"category", KindText},
			{"project", KindText},
			{"effort_level", KindText},
			{"task_type", KindText},
			{"last_focus_started_at", KindTime},
			{"last_focus_ended_at", KindTime},
			{"total_focus_minutes", KindInt},
		},
	}

	NoteSchema = TableSchema{
		Name: ffsync.TableNotes,
		Columns: []Column{
			{"title", KindText},
			{"content", KindText},
			{"category", KindText},
			{"tags", KindTextArray},
			{"audio", KindJSON},
			{"save_status", KindText},
		},
	}

	GoalSchema = TableSchema{
		Name: ffsync.TableGoals,
		Columns: []Column{
			{"title", KindText},
			{"description", KindText},
			{"category", KindText},
			{"target_date", KindTime},
			{"progress", KindInt},
			{"completed_at", KindTime},
			{"plan", KindJSON},
			{"milestones", KindJSON},
			{"lifecycle", KindText},
		},
	}
)
