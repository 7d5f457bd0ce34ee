package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/focusflow/internal/notify"
	"github.com/hyperengineering/focusflow/internal/types"
)

// dueWindows are the reminder thresholds in minutes, widest first.
var dueWindows = []int{60, 30, 15}

// TaskSource lists tasks to watch.
type TaskSource interface {
	All() []types.Task
}

// GoalSource lists goals past their target date.
type GoalSource interface {
	Overdue() []types.Goal
}

// DueDateMonitor periodically notifies about tasks that are about to fall
// due and goals that are overdue. Each threshold fires at most once per
// task due date; each goal fires once.
type DueDateMonitor struct {
	tasks    TaskSource
	goals    GoalSource
	notifier notify.Notifier
	interval time.Duration
	now      func() time.Time

	taskSent map[string]int // task id + due date -> narrowest window sent
	goalSent map[string]bool
}

// NewDueDateMonitor creates a monitor checking every interval.
func NewDueDateMonitor(tasks TaskSource, goals GoalSource, n notify.Notifier, interval time.Duration) *DueDateMonitor {
	return &DueDateMonitor{
		tasks:    tasks,
		goals:    goals,
		notifier: n,
		interval: interval,
		now:      types.Now,
		taskSent: make(map[string]int),
		goalSent: make(map[string]bool),
	}
}

// Run starts the monitor loop. Blocks until ctx is cancelled.
func (m *DueDateMonitor) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "due-date-monitor",
		"interval", m.interval.String(),
	)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "due-date-monitor",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one monitoring pass and returns the number of notifications sent.
func (m *DueDateMonitor) Check(ctx context.Context) int {
	now := m.now()
	sent := 0

	for _, t := range m.tasks.All() {
		if t.DueDate == nil || t.Status == types.StatusCompleted || t.Status == types.StatusCancelled {
			continue
		}
		until := t.DueDate.Sub(now)
		if until <= 0 {
			continue
		}
		window := 0
		for _, w := range dueWindows {
			if until <= time.Duration(w)*time.Minute {
				window = w
			}
		}
		if window == 0 {
			continue
		}
		key := t.ID + "@" + t.DueDate.UTC().Format(time.RFC3339)
		if last, ok := m.taskSent[key]; ok && last <= window {
			continue
		}
		m.taskSent[key] = window
		m.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindTaskDueSoon,
			Level:   notify.LevelWarning,
			Title:   "Task due soon",
			Message: fmt.Sprintf("%q is due in %d minutes", t.Title, int(until.Minutes()+0.5)),
			TaskID:  t.ID,
			At:      now,
		})
		sent++
	}

	if m.goals != nil {
		for _, g := range m.goals.Overdue() {
			if m.goalSent[g.ID] {
				continue
			}
			m.goalSent[g.ID] = true
			m.notifier.Notify(ctx, notify.Event{
				Kind:    notify.KindGoalOverdue,
				Level:   notify.LevelWarning,
				Title:   "Goal overdue",
				Message: fmt.Sprintf("%q passed its target date with open milestones", g.Title),
				GoalID:  g.ID,
				At:      now,
			})
			sent++
		}
	}

	if sent > 0 {
		slog.Debug("due date check completed",
			"component", "worker",
			"action", "monitor_check",
			"notifications", sent,
		)
	}
	return sent
}
