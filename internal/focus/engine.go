// Package focus runs the focus/recovery timer for a single task. The
// countdown is anchored to an absolute end time and recomputed on every
// tick, so scheduler delays never accumulate.
package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hyperengineering/focusflow/internal/notify"
	"github.com/hyperengineering/focusflow/internal/types"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskNotSelectable = errors.New("task is not selectable for focus")
	ErrSessionActive     = errors.New("a focus session is already running")
)

// Phase is the engine state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFocus    Phase = "focus"
	PhaseRecovery Phase = "recovery"
)

// TaskStore is the subset of the task store the engine drives.
type TaskStore interface {
	Get(id string) (types.Task, bool)
	Update(id string, p types.TaskPatch) (types.Task, bool)
	StartFocusSession(taskID string, plannedMinutes, cycle int, mood types.Mood) (types.FocusSession, bool)
	EndFocusSession(sessionID string, mood types.Mood, load types.CognitiveLoad) (types.FocusSession, bool)
	TaskFocusSessions(taskID string) []types.FocusSession
	SetActiveFocusTask(id string)
	AddInsight(in types.Insight) types.Insight
}

// ScreenLock is an optional exclusive presentation lock held during focus.
type ScreenLock interface {
	Acquire(ctx context.Context) error
	Release()
}

// Config holds timer durations and duration bounds.
type Config struct {
	Recovery       time.Duration
	TickInterval   time.Duration
	MinMinutes     int
	MaxMinutes     int
	DefaultMinutes int
	LightMinutes   int
	HeavyMinutes   int
}

// DefaultConfig returns the standard focus settings.
func DefaultConfig() Config {
	return Config{
		Recovery:       5 * time.Minute,
		TickInterval:   time.Second,
		MinMinutes:     15,
		MaxMinutes:     50,
		DefaultMinutes: 25,
		LightMinutes:   20,
		HeavyMinutes:   35,
	}
}

// Options configures an Engine.
type Options struct {
	Config     Config
	Notifier   notify.Notifier
	ScreenLock ScreenLock
	Now        func() time.Time
}

// Snapshot is a point-in-time view of the engine.
type Snapshot struct {
	Phase            Phase      `json:"phase"`
	TaskID           string     `json:"task_id,omitempty"`
	SessionID        string     `json:"session_id,omitempty"`
	PlannedMinutes   int        `json:"planned_minutes,omitempty"`
	Cycle            int        `json:"cycle"`
	RemainingSeconds int        `json:"remaining_seconds"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
}

// Engine is the idle → focus → recovery → idle state machine.
type Engine struct {
	tasks    TaskStore
	cfg      Config
	notifier notify.Notifier
	lock     ScreenLock
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.Mutex
	phase     Phase
	taskID    string
	sessionID string
	planned   int
	cycle     int
	endsAt    time.Time
	locked    bool
	stop      chan struct{}
}

// NewEngine creates an idle engine driving tasks.
func NewEngine(tasks TaskStore, opts Options) *Engine {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.Recovery <= 0 {
		cfg.Recovery = def.Recovery
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MinMinutes <= 0 {
		cfg.MinMinutes = def.MinMinutes
	}
	if cfg.MaxMinutes < cfg.MinMinutes {
		cfg.MaxMinutes = def.MaxMinutes
	}
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = def.DefaultMinutes
	}
	if cfg.LightMinutes <= 0 {
		cfg.LightMinutes = def.LightMinutes
	}
	if cfg.HeavyMinutes <= 0 {
		cfg.HeavyMinutes = def.HeavyMinutes
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Now == nil {
		opts.Now = types.Now
	}
	return &Engine{
		tasks:    tasks,
		cfg:      cfg,
		notifier: opts.Notifier,
		lock:     opts.ScreenLock,
		now:      opts.Now,
		logger:   slog.Default().With("component", "focus"),
		phase:    PhaseIdle,
	}
}

// PlannedMinutes picks the next session length for task: the rounded mean
// of its completed sessions clamped to the configured bounds, or a default
// keyed by effort level.
func PlannedMinutes(task types.Task, sessions []types.FocusSession, cfg Config) int {
	sum, n := 0, 0
	for _, s := range sessions {
		if s.Ended() {
			sum += s.ActualMinutes
			n++
		}
	}
	if n > 0 {
		m := int(math.Round(float64(sum) / float64(n)))
		return min(max(m, cfg.MinMinutes), cfg.MaxMinutes)
	}
	switch task.EffortLevel {
	case types.EffortLight:
		return cfg.LightMinutes
	case types.EffortHeavy:
		return cfg.HeavyMinutes
	default:
		return cfg.DefaultMinutes
	}
}

// Start begins a focus session on taskID and starts the ticker.
func (e *Engine) Start(ctx context.Context, taskID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle {
		return e.snapshotLocked(), ErrSessionActive
	}
	task, ok := e.tasks.Get(taskID)
	if !ok {
		return e.snapshotLocked(), ErrTaskNotFound
	}
	if !task.Selectable() {
		return e.snapshotLocked(), ErrTaskNotSelectable
	}

	planned := PlannedMinutes(task, e.tasks.TaskFocusSessions(taskID), e.cfg)
	fs, ok := e.tasks.StartFocusSession(taskID, planned, e.cycle, types.MoodNeutral)
	if !ok {
		return e.snapshotLocked(), ErrTaskNotFound
	}
	e.tasks.SetActiveFocusTask(taskID)

	e.phase = PhaseFocus
	e.taskID = taskID
	e.sessionID = fs.ID
	e.planned = planned
	e.endsAt = fs.StartedAt.Add(time.Duration(planned) * time.Minute)

	if e.lock != nil {
		if err := e.lock.Acquire(ctx); err != nil {
			e.logger.Warn("screen lock unavailable", "action", "start", "error", err)
		} else {
			e.locked = true
		}
	}

	e.stop = make(chan struct{})
	go e.tickLoop(context.WithoutCancel(ctx), e.stop)

	e.logger.Info("focus started",
		"action", "start",
		"task_id", taskID,
		"session_id", fs.ID,
		"planned_minutes", planned,
		"cycle", e.cycle,
	)
	e.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindFocusStarted,
		Level:   notify.LevelInfo,
		Title:   "Focus started",
		Message: fmt.Sprintf("%d minutes on %q", planned, task.Title),
		TaskID:  taskID,
		At:      fs.StartedAt,
	})
	return e.snapshotLocked(), nil
}

func (e *Engine) tickLoop(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.stop != stop {
				e.mu.Unlock()
				return
			}
			running := e.tickLocked(ctx)
			e.mu.Unlock()
			if !running {
				return
			}
		}
	}
}

// Tick advances the state machine against the clock and reports whether
// a phase is still running.
func (e *Engine) Tick(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickLocked(ctx)
}

func (e *Engine) tickLocked(ctx context.Context) bool {
	if e.phase == PhaseIdle {
		return false
	}
	if e.endsAt.Sub(e.now()) > 0 {
		return true
	}
	switch e.phase {
	case PhaseFocus:
		return e.finishFocusLocked(ctx)
	case PhaseRecovery:
		taskID := e.taskID
		e.resetLocked()
		e.logger.Info("recovery finished", "action", "recovery_done", "task_id", taskID)
		e.notifier.Notify(ctx, notify.Event{
			Kind:   notify.KindRecoveryFinished,
			Level:  notify.LevelInfo,
			Title:  "Break over",
			TaskID: taskID,
			At:     e.now(),
		})
		return false
	}
	return false
}

// finishFocusLocked closes the session, evaluates lateness and enters
// recovery. A task deleted mid-cycle returns the engine to idle instead and
// finishFocusLocked reports false.
func (e *Engine) finishFocusLocked(ctx context.Context) bool {
	task, ok := e.tasks.Get(e.taskID)
	if !ok {
		taskID := e.taskID
		e.resetLocked()
		e.logger.Info("focus task gone, cycle abandoned", "action", "focus_done", "task_id", taskID)
		return false
	}
	load := types.LoadMedium
	if task.EffortLevel == types.EffortHeavy {
		load = types.LoadHeavy
	}
	fs, ended := e.tasks.EndFocusSession(e.sessionID, types.MoodHigh, load)
	end := e.now()
	if ended && fs.EndedAt != nil {
		end = *fs.EndedAt
	}

	e.cycle++
	e.phase = PhaseRecovery
	e.sessionID = ""
	e.endsAt = end.Add(e.cfg.Recovery)
	e.releaseLocked()

	e.evaluateLocked(ctx, task, end)
	e.logger.Info("focus completed",
		"action", "focus_done",
		"task_id", e.taskID,
		"actual_minutes", fs.ActualMinutes,
		"cycle", e.cycle,
	)
	return true
}

// evaluateLocked emits a lateness warning when the task was due before
// end, otherwise praise with the estimate-to-plan efficiency.
func (e *Engine) evaluateLocked(ctx context.Context, task types.Task, end time.Time) {
	status := types.StatusInProgress
	if task.DueDate != nil && task.DueDate.Before(end) {
		delay := max(int(math.Round(end.Sub(*task.DueDate).Minutes())), 1)
		reason := fmt.Sprintf("Finished a focus cycle %d minutes past the due date; consider renegotiating the deadline.", delay)
		e.tasks.Update(task.ID, types.TaskPatch{Status: &status, AIReason: &reason})
		e.tasks.AddInsight(types.Insight{
			Type:     types.InsightWarning,
			Priority: types.InsightPriorityHigh,
			Message:  fmt.Sprintf("%q is %d minutes late.", task.Title, delay),
			TaskID:   task.ID,
		})
		e.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindFocusLate,
			Level:   notify.LevelWarning,
			Title:   "Task running late",
			Message: fmt.Sprintf("%d minutes past due", delay),
			TaskID:  task.ID,
			At:      end,
		})
		return
	}

	efficiency := 100
	if task.EstimatedMinutes > 0 && e.planned > 0 {
		efficiency = int(math.Round(float64(task.EstimatedMinutes) / float64(e.planned) * 100))
	}
	reason := fmt.Sprintf("Focus cycle completed on time at %d%% efficiency.", efficiency)
	e.tasks.Update(task.ID, types.TaskPatch{Status: &status, AIReason: &reason})
	e.tasks.AddInsight(types.Insight{
		Type:     types.InsightPraise,
		Priority: types.InsightPriorityMedium,
		Message:  fmt.Sprintf("Great focus on %q: %d%% efficiency.", task.Title, efficiency),
		TaskID:   task.ID,
	})
	e.notifier.Notify(ctx, notify.Event{
		Kind:    notify.KindFocusPraise,
		Level:   notify.LevelSuccess,
		Title:   "Focus cycle complete",
		Message: fmt.Sprintf("%d%% efficiency", efficiency),
		TaskID:  task.ID,
		At:      end,
	})
}

// Stop ends any phase and returns to idle. An open session is closed with
// neutral mood and medium load. Stopping while idle is a no-op.
func (e *Engine) Stop(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(ctx)
	return e.snapshotLocked()
}

// Deselect stops any phase and clears the active focus task. The pointer
// otherwise survives finished cycles and stops.
func (e *Engine) Deselect(ctx context.Context) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(ctx)
	e.tasks.SetActiveFocusTask("")
	e.logger.Info("focus task deselected", "action", "deselect")
	return e.snapshotLocked()
}

func (e *Engine) stopLocked(ctx context.Context) {
	if e.phase == PhaseIdle {
		return
	}
	taskID := e.taskID
	if e.sessionID != "" {
		fs, ok := e.tasks.EndFocusSession(e.sessionID, types.MoodNeutral, types.LoadMedium)
		if ok {
			e.logger.Info("focus stopped", "action", "stop", "task_id", taskID, "actual_minutes", fs.ActualMinutes)
		}
	}
	e.resetLocked()
	e.notifier.Notify(ctx, notify.Event{
		Kind:   notify.KindFocusStopped,
		Level:  notify.LevelInfo,
		Title:  "Focus stopped",
		TaskID: taskID,
		At:     e.now(),
	})
}

// resetLocked returns to idle, halts ticking and releases the lock.
func (e *Engine) resetLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	e.releaseLocked()
	e.phase = PhaseIdle
	e.taskID = ""
	e.sessionID = ""
	e.planned = 0
	e.endsAt = time.Time{}
}

func (e *Engine) releaseLocked() {
	if e.locked && e.lock != nil {
		e.lock.Release()
	}
	e.locked = false
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:          e.phase,
		TaskID:         e.taskID,
		SessionID:      e.sessionID,
		PlannedMinutes: e.planned,
		Cycle:          e.cycle,
	}
	if e.phase != PhaseIdle {
		ends := e.endsAt
		s.EndsAt = &ends
		if rem := ends.Sub(e.now()); rem > 0 {
			s.RemainingSeconds = int(math.Ceil(rem.Seconds()))
		}
	}
	return s
}
