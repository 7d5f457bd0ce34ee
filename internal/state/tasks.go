package state

import (
	"encoding/json"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// TaskStore owns tasks together with their focus sessions, the active
// focus pointer and generated insights. All of it persists as one record.
type TaskStore struct {
	*core[types.Task, types.TaskPatch]

	sessions    []types.FocusSession
	activeFocus string
	insights    []types.Insight
}

type taskSnapshot struct {
	Tasks             []types.Task         `json:"tasks"`
	FocusSessions     []types.FocusSession `json:"focus_sessions"`
	ActiveFocusTaskID string               `json:"active_focus_task_id,omitempty"`
	Insights          []types.Insight      `json:"insights"`
}

// NewTaskStore creates an empty task store.
func NewTaskStore(opts Options) *TaskStore {
	s := &TaskStore{core: &core[types.Task, types.TaskPatch]{}}
	s.setup(ffsync.TableTasks, opts, hooks[types.Task, types.TaskPatch]{
		clone: types.Task.Clone,
		apply: (*types.Task).Apply,
		create: func(t *types.Task, id string, now time.Time) {
			t.ID = id
			t.CreatedAt = now
			t.UpdatedAt = now
			if t.Status == "" {
				t.Status = types.StatusPending
			}
			if t.Lifecycle == "" {
				t.Lifecycle = types.LifecycleActive
			}
			if t.Priority == "" {
				t.Priority = types.PriorityCanWait
			}
			if t.Status == types.StatusCompleted && t.CompletedAt == nil {
				t.CompletedAt = &now
			} else if t.Status != types.StatusCompleted {
				t.CompletedAt = nil
			}
		},
		encode: func() any {
			return taskSnapshot{
				Tasks:             s.items,
				FocusSessions:     s.sessions,
				ActiveFocusTaskID: s.activeFocus,
				Insights:          s.insights,
			}
		},
		decode: func(b []byte) error {
			var snap taskSnapshot
			if err := json.Unmarshal(b, &snap); err != nil {
				return err
			}
			s.items = snap.Tasks
			s.sessions = snap.FocusSessions
			s.activeFocus = snap.ActiveFocusTaskID
			s.insights = snap.Insights
			return nil
		},
		onClear: func() {
			s.sessions = nil
			s.activeFocus = ""
			s.insights = nil
		},
		onDelete: func(id string) {
			kept := s.sessions[:0]
			for _, fs := range s.sessions {
				if fs.TaskID != id {
					kept = append(kept, fs)
				}
			}
			s.sessions = kept
			if s.activeFocus == id {
				s.activeFocus = ""
			}
		},
	})
	return s
}

// Complete marks a task completed.
func (s *TaskStore) Complete(id string) (types.Task, bool) {
	status := types.StatusCompleted
	lifecycle := types.LifecycleActive
	return s.Update(id, types.TaskPatch{Status: &status, Lifecycle: &lifecycle})
}

// Archive hides a task from default queries.
func (s *TaskStore) Archive(id string) (types.Task, bool) {
	return s.setLifecycle(id, types.LifecycleArchived)
}

// Pause parks a task without changing its status.
func (s *TaskStore) Pause(id string) (types.Task, bool) {
	return s.setLifecycle(id, types.LifecyclePaused)
}

// Reactivate returns a paused or archived task to the active lifecycle.
func (s *TaskStore) Reactivate(id string) (types.Task, bool) {
	return s.setLifecycle(id, types.LifecycleActive)
}

func (s *TaskStore) setLifecycle(id string, l types.Lifecycle) (types.Task, bool) {
	return s.Update(id, types.TaskPatch{Lifecycle: &l})
}

// CompletedToday returns tasks whose completion falls on the current local day.
func (s *TaskStore) CompletedToday() []types.Task {
	now := s.opts.Now()
	return s.filter(func(t types.Task) bool {
		return t.CompletedAt != nil && sameDay(*t.CompletedAt, now, s.opts.Location)
	})
}

// Pending returns open tasks that are not archived.
func (s *TaskStore) Pending() []types.Task {
	return s.filter(func(t types.Task) bool {
		return (t.Status == types.StatusPending || t.Status == types.StatusInProgress) &&
			t.Lifecycle != types.LifecycleArchived
	})
}

// ProductivityState classifies today by the number of completed tasks.
func (s *TaskStore) ProductivityState() types.ProductivityState {
	switch n := len(s.CompletedToday()); {
	case n >= 3:
		return types.ProductivityProductive
	case n >= 1:
		return types.ProductivityPartial
	default:
		return types.ProductivityUnproductive
	}
}

// StartFocusSession records a new session for taskID and marks the task
// in progress. Returns false if the task does not exist.
func (s *TaskStore) StartFocusSession(taskID string, plannedMinutes, cycle int, mood types.Mood) (types.FocusSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(taskID) < 0 {
		return types.FocusSession{}, false
	}
	now := s.opts.Now()
	fs := types.FocusSession{
		ID:             types.NewID(),
		TaskID:         taskID,
		StartedAt:      now,
		PlannedMinutes: plannedMinutes,
		CycleIndex:     cycle,
		MoodBefore:     mood,
	}
	s.sessions = append([]types.FocusSession{fs}, s.sessions...)

	status := types.StatusInProgress
	s.updateLocked(taskID, types.TaskPatch{Status: &status, LastFocusStartedAt: &now})
	return fs, true
}

// EndFocusSession closes an open session and accumulates its duration on
// the owning task. Unknown or already ended sessions are ignored.
func (s *TaskStore) EndFocusSession(sessionID string, mood types.Mood, load types.CognitiveLoad) (types.FocusSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, fs := range s.sessions {
		if fs.ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 || s.sessions[idx].Ended() {
		return types.FocusSession{}, false
	}

	now := s.opts.Now()
	fs := s.sessions[idx]
	fs.EndedAt = &now
	fs.ActualMinutes = types.ElapsedMinutes(fs.StartedAt, now)
	fs.MoodAfter = mood
	fs.CognitiveLoad = load
	s.sessions[idx] = fs

	if i := s.indexLocked(fs.TaskID); i >= 0 {
		t := s.items[i]
		total := t.TotalFocusMinutes + fs.ActualMinutes
		actual := t.ActualMinutes + fs.ActualMinutes
		s.updateLocked(fs.TaskID, types.TaskPatch{
			TotalFocusMinutes: &total,
			ActualMinutes:     &actual,
			LastFocusEndedAt:  &now,
		})
	} else {
		s.persistLocked()
	}
	return fs, true
}

// TaskFocusSessions returns the sessions recorded for taskID, newest first.
func (s *TaskStore) TaskFocusSessions(taskID string) []types.FocusSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.FocusSession, 0)
	for _, fs := range s.sessions {
		if fs.TaskID == taskID {
			out = append(out, fs)
		}
	}
	return out
}

// FocusSession returns the session with id.
func (s *TaskStore) FocusSession(id string) (types.FocusSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fs := range s.sessions {
		if fs.ID == id {
			return fs, true
		}
	}
	return types.FocusSession{}, false
}

// SetActiveFocusTask sets or clears (empty id) the active focus pointer.
func (s *TaskStore) SetActiveFocusTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeFocus = id
	s.persistLocked()
}

// ActiveFocusTask returns the id of the task in focus, if any.
func (s *TaskStore) ActiveFocusTask() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFocus
}

// AddInsight stores a generated insight, newest first.
func (s *TaskStore) AddInsight(in types.Insight) types.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = types.NewID()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.opts.Now()
	}
	s.insights = append([]types.Insight{in}, s.insights...)
	s.persistLocked()
	return in
}

// DismissInsight hides an insight. Returns false if it does not exist.
func (s *TaskStore) DismissInsight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.insights {
		if s.insights[i].ID == id {
			s.insights[i].Dismissed = true
			s.persistLocked()
			return true
		}
	}
	return false
}

// Insights returns insights newest first, optionally including dismissed ones.
func (s *TaskStore) Insights(includeDismissed bool) []types.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Insight, 0, len(s.insights))
	for _, in := range s.insights {
		if includeDismissed || !in.Dismissed {
			out = append(out, in)
		}
	}
	return out
}
