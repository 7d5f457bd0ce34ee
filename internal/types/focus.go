package types

import "time"

// Mood is a coarse self-reported energy level
type Mood string

const (
	MoodLow     Mood = "low"
	MoodNeutral Mood = "neutral"
	MoodHigh    Mood = "high"
)

// CognitiveLoad classifies how draining a session was
type CognitiveLoad string

const (
	LoadLight  CognitiveLoad = "light"
	LoadMedium CognitiveLoad = "medium"
	LoadHeavy  CognitiveLoad = "heavy"
)

// FocusSession is one timed work interval bound to a task.
// It is created on start and mutated once when it ends.
type FocusSession struct {
	ID             string        `json:"id"`
	TaskID         string        `json:"task_id"`
	StartedAt      time.Time     `json:"started_at"`
	PlannedMinutes int           `json:"planned_minutes"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
	ActualMinutes  int           `json:"actual_minutes,omitempty"`
	CycleIndex     int           `json:"cycle_index"`
	MoodBefore     Mood          `json:"mood_before,omitempty"`
	MoodAfter      Mood          `json:"mood_after,omitempty"`
	CognitiveLoad  CognitiveLoad `json:"cognitive_load,omitempty"`
}

// Ended reports whether the session has been closed.
func (s FocusSession) Ended() bool { return s.EndedAt != nil }

// ElapsedMinutes rounds the wall-clock delta to whole minutes, minimum 1.
func ElapsedMinutes(start, end time.Time) int {
	m := int(end.Sub(start).Minutes() + 0.5)
	if m < 1 {
		return 1
	}
	return m
}
