package sync

import (
	"encoding/json"
	"time"
)

// OutboxEntry is one pending remote mirror operation.
type OutboxEntry struct {
	Sequence  int64           `json:"sequence"`
	UserID    string          `json:"user_id"`
	TableName string          `json:"table_name"`
	EntityID  string          `json:"entity_id"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Operation constants
const (
	OperationInsert = "insert"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Table names shared by local collections, outbox entries and remote tables.
const (
	TableTasks = "tasks"
	TableNotes = "notes"
	TableGoals = "goals"
)

// State is the engine's position in a reconciliation cycle
type State string

const (
	StateIdle          State = "idle"
	StateSyncing       State = "syncing"
	StateIdleWithError State = "idle-with-error"
)

// Stats counts the effects of one reconciliation pass for one table.
type Stats struct {
	Inserted    int `json:"inserted"`
	Pushed      int `json:"pushed"`
	Pulled      int `json:"pulled"`
	Overwritten int `json:"overwritten"`
}

// Status is a point-in-time view of the sync engine.
type Status struct {
	State          State            `json:"state"`
	Online         bool             `json:"online"`
	InProgress     bool             `json:"in_progress"`
	LastSync       *time.Time       `json:"last_sync,omitempty"`
	LastError      string           `json:"last_error,omitempty"`
	Tables         map[string]Stats `json:"tables,omitempty"`
	PendingChanges int64            `json:"pending_changes"`
}
