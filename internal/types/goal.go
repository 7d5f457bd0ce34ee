package types

import "time"

// GoalCategory is the business domain of a goal
type GoalCategory string

const (
	GoalCategoryEducation GoalCategory = "education"
	GoalCategoryFitness   GoalCategory = "fitness"
	GoalCategoryFinancial GoalCategory = "financial"
	GoalCategoryCareer    GoalCategory = "career"
	GoalCategoryPersonal  GoalCategory = "personal"
	GoalCategoryOther     GoalCategory = "other"
)

// Valid reports whether c is a known goal category.
func (c GoalCategory) Valid() bool {
	switch c {
	case GoalCategoryEducation, GoalCategoryFitness, GoalCategoryFinancial,
		GoalCategoryCareer, GoalCategoryPersonal, GoalCategoryOther:
		return true
	}
	return false
}

// Milestone is one ordered checkpoint of a goal
type Milestone struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GoalPlan holds the category-specific targets of a goal
type GoalPlan struct {
	TotalSessions     int      `json:"total_sessions,omitempty"`
	CompletedSessions int      `json:"completed_sessions,omitempty"`
	SessionDuration   int      `json:"session_duration,omitempty"`
	SessionDays       []string `json:"session_days,omitempty"`
	WorkoutType       string   `json:"workout_type,omitempty"`
	WorkoutDays       []string `json:"workout_days,omitempty"`
	WorkoutDuration   int      `json:"workout_duration,omitempty"`
	TargetAmount      float64  `json:"target_amount,omitempty"`
	CurrentAmount     float64  `json:"current_amount,omitempty"`
	Currency          string   `json:"currency,omitempty"`
}

// Goal is a long-running objective owned by the goal store.
// Completed is derived from Progress.
type Goal struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    GoalCategory `json:"category"`
	TargetDate  *time.Time   `json:"target_date,omitempty"`
	Progress    int          `json:"progress"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	GoalPlan
	Milestones []Milestone `json:"milestones,omitempty"`
	Lifecycle  Lifecycle   `json:"lifecycle"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (g Goal) EntityID() string    { return g.ID }
func (g Goal) Created() time.Time  { return g.CreatedAt }
func (g Goal) Modified() time.Time { return g.UpdatedAt }

// Clone returns a deep copy of g.
func (g Goal) Clone() Goal {
	c := g
	c.TargetDate = cloneTime(g.TargetDate)
	c.CompletedAt = cloneTime(g.CompletedAt)
	c.SessionDays = cloneStrings(g.SessionDays)
	c.WorkoutDays = cloneStrings(g.WorkoutDays)
	if g.Milestones != nil {
		c.Milestones = make([]Milestone, len(g.Milestones))
		for i, m := range g.Milestones {
			m.CompletedAt = cloneTime(m.CompletedAt)
			c.Milestones[i] = m
		}
	}
	return c
}

// ClampProgress bounds p to 0..100.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// GoalPatch carries a partial goal update. Nil fields are left unchanged.
type GoalPatch struct {
	Title            *string       `json:"title,omitempty"`
	Description      *string       `json:"description,omitempty"`
	Category         *GoalCategory `json:"category,omitempty"`
	TargetDate       *time.Time    `json:"target_date,omitempty"`
	ClearTargetDate  bool          `json:"clear_target_date,omitempty"`
	Progress         *int          `json:"progress,omitempty"`
	Completed        *bool         `json:"completed,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	ClearCompletedAt bool          `json:"clear_completed_at,omitempty"`
	Plan             *GoalPlan     `json:"plan,omitempty"`
	Milestones       *[]Milestone  `json:"milestones,omitempty"`
	Lifecycle        *Lifecycle    `json:"lifecycle,omitempty"`
}

// Apply merges p into g and stamps UpdatedAt. A progress change
// re-derives Completed and CompletedAt; the returned patch includes them.
func (g *Goal) Apply(p GoalPatch, now time.Time) GoalPatch {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.ClearTargetDate {
		g.TargetDate = nil
	} else if p.TargetDate != nil {
		g.TargetDate = cloneTime(p.TargetDate)
	}
	if p.Plan != nil {
		g.GoalPlan = *p.Plan
		g.SessionDays = cloneStrings(p.Plan.SessionDays)
		g.WorkoutDays = cloneStrings(p.Plan.WorkoutDays)
	}
	if p.Milestones != nil {
		g.Milestones = append([]Milestone(nil), (*p.Milestones)...)
	}
	if p.Lifecycle != nil {
		g.Lifecycle = *p.Lifecycle
	}

	if p.Progress != nil {
		g.Progress = ClampProgress(*p.Progress)
		p.Progress = &g.Progress
		completed := g.Progress >= 100
		g.Completed = completed
		p.Completed = &completed
		switch {
		case completed && g.CompletedAt == nil:
			at := now
			g.CompletedAt = &at
			p.CompletedAt = cloneTime(&at)
			p.ClearCompletedAt = false
		case !completed:
			g.CompletedAt = nil
			p.CompletedAt = nil
			p.ClearCompletedAt = true
		}
	}

	g.UpdatedAt = now
	return p
}
