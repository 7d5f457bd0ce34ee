// Package insight derives productivity insights from the task list.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hyperengineering/focusflow/internal/types"
)

// MaxInsights caps how many insights one generation may add.
const MaxInsights = 5

// Stats summarizes the task list for an advisor.
type Stats struct {
	CompletedToday    int `json:"completed_today"`
	PendingTasks      int `json:"pending_tasks"`
	OverdueTasks      int `json:"overdue_tasks"`
	ProductiveMinutes int `json:"productive_minutes"`
	CurrentStreak     int `json:"current_streak"`
}

// Result is the output of one generation.
type Result struct {
	Insights        []types.Insight `json:"insights"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// Advisor turns tasks and stats into insights.
type Advisor interface {
	Advise(ctx context.Context, tasks []types.Task, stats Stats) (Result, error)
}

// ComputeStats derives Stats from tasks as of now in loc.
func ComputeStats(tasks []types.Task, now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.Local
	}
	var s Stats
	today := dayStart(now, loc)
	completedDays := map[time.Time]bool{}
	for _, t := range tasks {
		switch t.Status {
		case types.StatusCompleted:
			if t.ActualMinutes > 0 {
				s.ProductiveMinutes += t.ActualMinutes
			}
			if t.CompletedAt != nil {
				day := dayStart(*t.CompletedAt, loc)
				completedDays[day] = true
				if day.Equal(today) {
					s.CompletedToday++
				}
			}
		case types.StatusPending, types.StatusInProgress:
			if t.Lifecycle == types.LifecycleArchived {
				continue
			}
			s.PendingTasks++
			if t.DueDate != nil && t.DueDate.Before(now) {
				s.OverdueTasks++
			}
		}
	}
	// Consecutive days with completions ending yesterday or today
	day := today
	if !completedDays[day] {
		day = day.AddDate(0, 0, -1)
	}
	for completedDays[day] {
		s.CurrentStreak++
		day = day.AddDate(0, 0, -1)
	}
	return s
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RuleAdvisor produces insights from fixed heuristics. It never fails.
type RuleAdvisor struct{}

func (RuleAdvisor) Advise(_ context.Context, tasks []types.Task, s Stats) (Result, error) {
	var r Result
	add := func(typ types.InsightType, p types.InsightPriority, msg string) {
		r.Insights = append(r.Insights, types.Insight{Type: typ, Priority: p, Message: msg})
	}

	if s.OverdueTasks > 0 {
		add(types.InsightWarning, types.InsightPriorityHigh,
			fmt.Sprintf("%d task(s) are past their due date. Reschedule or tackle them first.", s.OverdueTasks))
	}

	urgent := 0
	for _, t := range tasks {
		if t.Selectable() && t.Priority == types.PriorityUrgent {
			urgent++
		}
	}
	if urgent > 3 {
		add(types.InsightSuggestion, types.InsightPriorityHigh,
			fmt.Sprintf("%d urgent tasks are open. Consider delegating or re-prioritizing some.", urgent))
	}

	switch {
	case s.CompletedToday >= 3:
		add(types.InsightPraise, types.InsightPriorityMedium,
			fmt.Sprintf("%d tasks completed today. Keep the momentum!", s.CompletedToday))
	case s.CompletedToday == 0 && s.PendingTasks > 0:
		add(types.InsightTip, types.InsightPriorityMedium,
			"Start with a short focus session on your most important task.")
	}

	if s.CurrentStreak >= 3 {
		add(types.InsightPraise, types.InsightPriorityLow,
			fmt.Sprintf("%d-day completion streak.", s.CurrentStreak))
	}

	if over := overEstimated(tasks); over != "" {
		add(types.InsightTip, types.InsightPriorityLow,
			fmt.Sprintf("%q took longer than estimated. Pad similar estimates.", over))
	}

	if len(r.Insights) > MaxInsights {
		r.Insights = r.Insights[:MaxInsights]
	}
	return r, nil
}

// overEstimated returns the title of the most recently completed task that
// overran its estimate by half or more.
func overEstimated(tasks []types.Task) string {
	var done []types.Task
	for _, t := range tasks {
		if t.Status == types.StatusCompleted && t.CompletedAt != nil && t.EstimatedMinutes > 0 &&
			t.ActualMinutes*2 >= t.EstimatedMinutes*3 {
			done = append(done, t)
		}
	}
	if len(done) == 0 {
		return ""
	}
	sort.Slice(done, func(i, j int) bool { return done[i].CompletedAt.After(*done[j].CompletedAt) })
	return done[0].Title
}

// Store is the task store surface the generator uses.
type Store interface {
	All() []types.Task
	AddInsight(in types.Insight) types.Insight
	Insights(includeDismissed bool) []types.Insight
}

// Generator runs an advisor against the task store and records new insights.
type Generator struct {
	store    Store
	advisor  Advisor
	fallback Advisor
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
}

// NewGenerator creates a generator. When advisor fails, RuleAdvisor is used.
func NewGenerator(store Store, advisor Advisor) *Generator {
	if advisor == nil {
		advisor = RuleAdvisor{}
	}
	return &Generator{
		store:    store,
		advisor:  advisor,
		fallback: RuleAdvisor{},
		now:      types.Now,
		loc:      time.Local,
		logger:   slog.Default().With("component", "insight"),
	}
}

// Generate adds insights whose message is not already shown and returns them.
func (g *Generator) Generate(ctx context.Context) (Result, error) {
	tasks := g.store.All()
	if len(tasks) == 0 {
		return Result{Insights: []types.Insight{}}, nil
	}
	stats := ComputeStats(tasks, g.now(), g.loc)

	res, err := g.advisor.Advise(ctx, tasks, stats)
	if err != nil {
		g.logger.Warn("advisor failed, using rules", "action", "generate", "error", err)
		if res, err = g.fallback.Advise(ctx, tasks, stats); err != nil {
			return Result{}, err
		}
	}

	shown := map[string]bool{}
	for _, in := range g.store.Insights(false) {
		shown[in.Message] = true
	}
	added := make([]types.Insight, 0, len(res.Insights))
	for _, in := range res.Insights {
		if in.Message == "" || shown[in.Message] {
			continue
		}
		shown[in.Message] = true
		added = append(added, g.store.AddInsight(in))
	}
	g.logger.Info("insights generated", "action", "generate", "count", len(added))
	return Result{Insights: added, Recommendations: res.Recommendations}, nil
}
