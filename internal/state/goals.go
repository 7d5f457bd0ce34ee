package state

import (
	"math"
	"time"

	ffsync "github.com/hyperengineering/focusflow/internal/sync"
	"github.com/hyperengineering/focusflow/internal/types"
)

// GoalStore owns the goal collection.
type GoalStore struct {
	*core[types.Goal, types.GoalPatch]
}

// NewGoalStore creates an empty goal store.
func NewGoalStore(opts Options) *GoalStore {
	s := &GoalStore{core: &core[types.Goal, types.GoalPatch]{}}
	s.setup(ffsync.TableGoals, opts, hooks[types.Goal, types.GoalPatch]{
		clone: types.Goal.Clone,
		apply: (*types.Goal).Apply,
		create: func(g *types.Goal, id string, now time.Time) {
			g.ID = id
			g.CreatedAt = now
			g.UpdatedAt = now
			if g.Category == "" {
				g.Category = types.GoalCategoryOther
			}
			if g.Lifecycle == "" {
				g.Lifecycle = types.LifecycleActive
			}
			for i := range g.Milestones {
				if g.Milestones[i].ID == "" {
					g.Milestones[i].ID = types.NewID()
				}
			}
			g.Progress = types.ClampProgress(g.Progress)
			g.Completed = g.Progress >= 100
			if g.Completed {
				g.CompletedAt = &now
			} else {
				g.CompletedAt = nil
			}
		},
	})
	return s
}

// UpdateProgress sets progress directly, clamped to 0..100.
func (s *GoalStore) UpdateProgress(id string, progress int) (types.Goal, bool) {
	return s.Update(id, types.GoalPatch{Progress: &progress})
}

// CompleteSession counts one more completed study or training session and
// derives progress from the session target.
func (s *GoalStore) CompleteSession(id string) (types.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return types.Goal{}, false
	}
	plan := s.items[i].GoalPlan
	plan.CompletedSessions++
	patch := types.GoalPatch{Plan: &plan}
	if plan.TotalSessions > 0 {
		p := percent(float64(plan.CompletedSessions), float64(plan.TotalSessions))
		patch.Progress = &p
	}
	return s.updateLocked(id, patch)
}

// UpdateMilestone sets one milestone's completion and derives progress
// from the share of completed milestones.
func (s *GoalStore) UpdateMilestone(goalID, milestoneID string, completed bool) (types.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(goalID)
	if i < 0 {
		return types.Goal{}, false
	}
	g := s.items[i].Clone()
	found := false
	done := 0
	now := s.opts.Now()
	for j := range g.Milestones {
		m := &g.Milestones[j]
		if m.ID == milestoneID {
			found = true
			m.Completed = completed
			if completed {
				at := now
				m.CompletedAt = &at
			} else {
				m.CompletedAt = nil
			}
		}
		if m.Completed {
			done++
		}
	}
	if !found {
		return types.Goal{}, false
	}
	p := percent(float64(done), float64(len(g.Milestones)))
	return s.updateLocked(goalID, types.GoalPatch{Milestones: &g.Milestones, Progress: &p})
}

// UpdateFinancialProgress records the saved amount and derives progress
// from the financial target.
func (s *GoalStore) UpdateFinancialProgress(id string, current float64) (types.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return types.Goal{}, false
	}
	plan := s.items[i].GoalPlan
	plan.CurrentAmount = current
	patch := types.GoalPatch{Plan: &plan}
	if plan.TargetAmount > 0 {
		p := percent(current, plan.TargetAmount)
		patch.Progress = &p
	}
	return s.updateLocked(id, patch)
}

// Archive hides a goal from default views.
func (s *GoalStore) Archive(id string) (types.Goal, bool) {
	return s.setLifecycle(id, types.LifecycleArchived)
}

// Pause parks a goal.
func (s *GoalStore) Pause(id string) (types.Goal, bool) {
	return s.setLifecycle(id, types.LifecyclePaused)
}

// Reactivate returns a goal to the active lifecycle.
func (s *GoalStore) Reactivate(id string) (types.Goal, bool) {
	return s.setLifecycle(id, types.LifecycleActive)
}

func (s *GoalStore) setLifecycle(id string, l types.Lifecycle) (types.Goal, bool) {
	return s.Update(id, types.GoalPatch{Lifecycle: &l})
}

// Overdue returns incomplete goals whose target date has passed and that
// still have open milestones.
func (s *GoalStore) Overdue() []types.Goal {
	now := s.opts.Now()
	return s.filter(func(g types.Goal) bool {
		if g.Completed || g.TargetDate == nil || !g.TargetDate.Before(now) || g.Lifecycle == types.LifecycleArchived {
			return false
		}
		for _, m := range g.Milestones {
			if !m.Completed {
				return true
			}
		}
		return false
	})
}

func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return types.ClampProgress(int(math.Round(part / whole * 100)))
}
