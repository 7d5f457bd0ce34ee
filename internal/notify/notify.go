// Package notify delivers fire-and-forget user notifications.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindSyncSucceeded    Kind = "sync_succeeded"
	KindSyncFailed       Kind = "sync_failed"
	KindBootstrapFailed  Kind = "bootstrap_failed"
	KindFocusStarted     Kind = "focus_started"
	KindFocusLate        Kind = "focus_late"
	KindFocusPraise      Kind = "focus_praise"
	KindFocusStopped     Kind = "focus_stopped"
	KindRecoveryFinished Kind = "recovery_finished"
	KindTaskDueSoon      Kind = "task_due_soon"
	KindGoalOverdue      Kind = "goal_overdue"
)

// Level is the presentational severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is one notification.
type Event struct {
	Kind    Kind      `json:"kind"`
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message,omitempty"`
	TaskID  string    `json:"task_id,omitempty"`
	GoalID  string    `json:"goal_id,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier receives notifications. Implementations must not block the
// caller on slow delivery and report failures only through logs.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Multi fans one event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging through logger (slog.Default if nil).
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, e Event) {
	level := slog.LevelInfo
	switch e.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{"kind", e.Kind, "title", e.Title}
	if e.Message != "" {
		attrs = append(attrs, "message", e.Message)
	}
	if e.TaskID != "" {
		attrs = append(attrs, "task_id", e.TaskID)
	}
	if e.GoalID != "" {
		attrs = append(attrs, "goal_id", e.GoalID)
	}
	l.logger.Log(ctx, level, "notification", attrs...)
}
