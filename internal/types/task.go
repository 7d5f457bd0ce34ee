package types

import "time"

// Priority is one of four ordered urgency levels
type Priority string

const (
	PriorityUrgent      Priority = "urgent"
	PriorityImportant   Priority = "important"
	PriorityCanWait     Priority = "can-wait"
	PriorityDispensable Priority = "dispensable"
)

// Rank orders priorities, urgent highest. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityImportant:
		return 3
	case PriorityCanWait:
		return 2
	case PriorityDispensable:
		return 1
	}
	return 0
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return p.Rank() > 0 }

// TaskStatus is the work state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// EffortLevel classifies how demanding a task is
type EffortLevel string

const (
	EffortLight  EffortLevel = "light"
	EffortMedium EffortLevel = "medium"
	EffortHeavy  EffortLevel = "heavy"
)

// TaskType classifies the kind of work
type TaskType string

const (
	TaskTypeDeepFocus   TaskType = "deep-focus"
	TaskTypeOperational TaskType = "operational"
	TaskTypeCreative    TaskType = "creative"
	TaskTypeQuick       TaskType = "quick"
)

// AIRecommendation is the suggested handling for a task
type AIRecommendation string

const (
	RecommendDoNow    AIRecommendation = "do-now"
	RecommendSchedule AIRecommendation = "schedule"
	RecommendDelegate AIRecommendation = "delegate"
	RecommendIgnore   AIRecommendation = "ignore"
)

// Task is a unit of work owned by the task store.
// Zero minute counts mean unset.
type Task struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	Priority           Priority         `json:"priority"`
	Status             TaskStatus       `json:"status"`
	Lifecycle          Lifecycle        `json:"lifecycle"`
	AIRecommendation   AIRecommendation `json:"ai_recommendation,omitempty"`
	AIReason           string           `json:"ai_reason,omitempty"`
	DueDate            *time.Time       `json:"due_date,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	EstimatedMinutes   int              `json:"estimated_minutes,omitempty"`
	ActualMinutes      int              `json:"actual_minutes,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
	Category           string           `json:"category,omitempty"`
	Project            string           `json:"project,omitempty"`
	EffortLevel        EffortLevel      `json:"effort_level,omitempty"`
	TaskType           TaskType         `json:"task_type,omitempty"`
	LastFocusStartedAt *time.Time       `json:"last_focus_started_at,omitempty"`
	LastFocusEndedAt   *time.Time       `json:"last_focus_ended_at,omitempty"`
	TotalFocusMinutes  int              `json:"total_focus_minutes,omitempty"`
}

func (t Task) EntityID() string    { return t.ID }
func (t Task) Created() time.Time  { return t.CreatedAt }
func (t Task) Modified() time.Time { return t.UpdatedAt }

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	c.DueDate = cloneTime(t.DueDate)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.LastFocusStartedAt = cloneTime(t.LastFocusStartedAt)
	c.LastFocusEndedAt = cloneTime(t.LastFocusEndedAt)
	c.Tags = cloneStrings(t.Tags)
	return c
}

// Selectable reports whether a focus session may start on t.
func (t Task) Selectable() bool {
	return (t.Status == StatusPending || t.Status == StatusInProgress) && t.Lifecycle != LifecycleArchived
}

// TaskPatch carries a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title              *string           `json:"title,omitempty"`
	Description        *string           `json:"description,omitempty"`
	Priority           *Priority         `json:"priority,omitempty"`
	Status             *TaskStatus       `json:"status,omitempty"`
	Lifecycle          *Lifecycle        `json:"lifecycle,omitempty"`
	AIRecommendation   *AIRecommendation `json:"ai_recommendation,omitempty"`
	AIReason           *string           `json:"ai_reason,omitempty"`
	DueDate            *time.Time        `json:"due_date,omitempty"`
	ClearDueDate       bool              `json:"clear_due_date,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	ClearCompletedAt   bool              `json:"clear_completed_at,omitempty"`
	EstimatedMinutes   *int              `json:"estimated_minutes,omitempty"`
	ActualMinutes      *int              `json:"actual_minutes,omitempty"`
	Tags               *[]string         `json:"tags,omitempty"`
	Category           *string           `json:"category,omitempty"`
	Project            *string           `json:"project,omitempty"`
	EffortLevel        *EffortLevel      `json:"effort_level,omitempty"`
	TaskType           *TaskType         `json:"task_type,omitempty"`
	LastFocusStartedAt *time.Time        `json:"last_focus_started_at,omitempty"`
	LastFocusEndedAt   *time.Time        `json:"last_focus_ended_at,omitempty"`
	TotalFocusMinutes  *int              `json:"total_focus_minutes,omitempty"`
}

// Apply merges p into t and stamps UpdatedAt. A status change keeps
// CompletedAt consistent with it; lifecycle changes only when p names it.
// The returned patch is p plus any derived completion fields.
func (t *Task) Apply(p TaskPatch, now time.Time) TaskPatch {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Lifecycle != nil {
		t.Lifecycle = *p.Lifecycle
	}
	if p.AIRecommendation != nil {
		t.AIRecommendation = *p.AIRecommendation
	}
	if p.AIReason != nil {
		t.AIReason = *p.AIReason
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = cloneTime(p.DueDate)
	}
	if p.EstimatedMinutes != nil {
		t.EstimatedMinutes = *p.EstimatedMinutes
	}
	if p.ActualMinutes != nil {
		t.ActualMinutes = *p.ActualMinutes
	}
	if p.Tags != nil {
		t.Tags = cloneStrings(*p.Tags)
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Project != nil {
		t.Project = *p.Project
	}
	if p.EffortLevel != nil {
		t.EffortLevel = *p.EffortLevel
	}
	if p.TaskType != nil {
		t.TaskType = *p.TaskType
	}
	if p.LastFocusStartedAt != nil {
		t.LastFocusStartedAt = cloneTime(p.LastFocusStartedAt)
	}
	if p.LastFocusEndedAt != nil {
		t.LastFocusEndedAt = cloneTime(p.LastFocusEndedAt)
	}
	if p.TotalFocusMinutes != nil {
		t.TotalFocusMinutes = *p.TotalFocusMinutes
	}

	if p.Status != nil {
		t.Status = *p.Status
		switch {
		case t.Status == StatusCompleted && t.CompletedAt == nil:
			at := now
			if p.CompletedAt != nil {
				at = *p.CompletedAt
			}
			t.CompletedAt = &at
			p.CompletedAt = cloneTime(&at)
			p.ClearCompletedAt = false
		case t.Status != StatusCompleted:
			t.CompletedAt = nil
			p.CompletedAt = nil
			p.ClearCompletedAt = true
		}
	} else if t.Status == StatusCompleted && p.CompletedAt != nil {
		t.CompletedAt = cloneTime(p.CompletedAt)
	}

	t.UpdatedAt = now
	return p
}
