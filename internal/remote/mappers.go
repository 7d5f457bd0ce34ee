package remote

import (
	"github.com/hyperengineering/focusflow/internal/types"
)

// TaskMapper maps tasks to the tasks table.
type TaskMapper struct{}

func (TaskMapper) Encode(t types.Task) Columns {
	return Columns{
		"title":                 t.Title,
		"description":           optText(t.Description),
		"priority":              string(t.Priority),
		"status":                string(t.Status),
		"lifecycle":             string(t.Lifecycle),
		"ai_recommendation":     optText(string(t.AIRecommendation)),
		"ai_reason":             optText(t.AIReason),
		"due_date":              optTime(t.DueDate),
		"completed_at":          optTime(t.CompletedAt),
		"estimated_minutes":     optInt(t.EstimatedMinutes),
		"actual_minutes":        optInt(t.ActualMinutes),
		"tags":                  tags(t.Tags),
		"category":              optText(t.Category),
		"project":               optText(t.Project),
		"effort_level":          optText(string(t.EffortLevel)),
		"task_type":             optText(string(t.TaskType)),
		"last_focus_started_at": optTime(t.LastFocusStartedAt),
		"last_focus_ended_at":   optTime(t.LastFocusEndedAt),
		"total_focus_minutes":   optInt(t.TotalFocusMinutes),
	}
}

func (TaskMapper) EncodePatch(p types.TaskPatch) Columns {
	c := Columns{}
	if p.Title != nil {
		c["title"] = *p.Title
	}
	if p.Description != nil {
		c["description"] = optText(*p.Description)
	}
	if p.Priority != nil {
		c["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		c["status"] = string(*p.Status)
	}
	if p.Lifecycle != nil {
		c["lifecycle"] = string(*p.Lifecycle)
	}
	if p.AIRecommendation != nil {
		c["ai_recommendation"] = optText(string(*p.AIRecommendation))
	}
	if p.AIReason != nil {
		c["ai_reason"] = optText(*p.AIReason)
	}
	if p.ClearDueDate {
		c["due_date"] = nil
	} else if p.DueDate != nil {
		c["due_date"] = optTime(p.DueDate)
	}
	if p.ClearCompletedAt {
		c["completed_at"] = nil
	} else if p.CompletedAt != nil {
		c["completed_at"] = optTime(p.CompletedAt)
	}
	if p.EstimatedMinutes != nil {
		c["estimated_minutes"] = optInt(*p.EstimatedMinutes)
	}
	if p.ActualMinutes != nil {
		c["actual_minutes"] = optInt(*p.ActualMinutes)
	}
	if p.Tags != nil {
		c["tags"] = tags(*p.Tags)
	}
	if p.Category != nil {
		c["category"] = optText(*p.Category)
	}
	if p.Project != nil {
		c["project"] = optText(*p.Project)
	}
	if p.EffortLevel != nil {
		c["effort_level"] = optText(string(*p.EffortLevel))
	}
	if p.TaskType != nil {
		c["task_type"] = optText(string(*p.TaskType))
	}
	if p.LastFocusStartedAt != nil {
		c["last_focus_started_at"] = optTime(p.LastFocusStartedAt)
	}
	if p.LastFocusEndedAt != nil {
		c["last_focus_ended_at"] = optTime(p.LastFocusEndedAt)
	}
	if p.TotalFocusMinutes != nil {
		c["total_focus_minutes"] = optInt(*p.TotalFocusMinutes)
	}
	return c
}

func (TaskMapper) Decode(r Record) types.Task {
	c := r.Columns
	created, updated := recordTimes(r)
	t := types.Task{
		ID:                 r.LocalID,
		Title:              c.String("title"),
		Description:        c.String("description"),
		Priority:           types.Priority(c.String("priority")),
		Status:             types.TaskStatus(c.String("status")),
		Lifecycle:          types.Lifecycle(c.String("lifecycle")),
		AIRecommendation:   types.AIRecommendation(c.String("ai_recommendation")),
		AIReason:           c.String("ai_reason"),
		DueDate:            c.Time("due_date"),
		CreatedAt:          created,
		UpdatedAt:          updated,
		CompletedAt:        c.Time("completed_at"),
		EstimatedMinutes:   c.Int("estimated_minutes"),
		ActualMinutes:      c.Int("actual_minutes"),
		Tags:               c.Strings("tags"),
		Category:           c.String("category"),
		Project:            c.String("project"),
		EffortLevel:        types.EffortLevel(c.String("effort_level")),
		TaskType:           types.TaskType(c.String("task_type")),
		LastFocusStartedAt: c.Time("last_focus_started_at"),
		LastFocusEndedAt:   c.Time("last_focus_ended_at"),
		TotalFocusMinutes:  c.Int("total_focus_minutes"),
	}
	if !t.Priority.Valid() {
		t.Priority = types.PriorityCanWait
	}
	if !t.Status.Valid() {
		t.Status = types.StatusPending
	}
	if !t.Lifecycle.Valid() {
		t.Lifecycle = types.LifecycleActive
	}
	switch {
	case t.Status == types.StatusCompleted && t.CompletedAt == nil:
		at := updated
		t.CompletedAt = &at
	case t.Status != types.StatusCompleted:
		t.CompletedAt = nil
	}
	return t
}

// NoteMapper maps notes to the notes table.
type NoteMapper struct{}

func (NoteMapper) Encode(n types.Note) Columns {
	c := Columns{
		"title":       n.Title,
		"content":     optText(n.Content),
		"category":    string(n.Category),
		"tags":        tags(n.Tags),
		"audio":       nil,
		"save_status": optText(string(n.SaveStatus)),
	}
	if n.Audio != nil {
		c["audio"] = rawJSON(n.Audio)
	}
	return c
}

func (NoteMapper) EncodePatch(p types.NotePatch) Columns {
	c := Columns{}
	if p.Title != nil {
		c["title"] = *p.Title
	}
	if p.Content != nil {
		c["content"] = optText(*p.Content)
	}
	if p.Category != nil {
		c["category"] = string(*p.Category)
	}
	if p.Tags != nil {
		c["tags"] = tags(*p.Tags)
	}
	if p.ClearAudio {
		c["audio"] = nil
	} else if p.Audio != nil {
		c["audio"] = rawJSON(p.Audio)
	}
	if p.SaveStatus != nil {
		c["save_status"] = optText(string(*p.SaveStatus))
	}
	return c
}

func (NoteMapper) Decode(r Record) types.Note {
	c := r.Columns
	created, updated := recordTimes(r)
	n := types.Note{
		ID:         r.LocalID,
		Title:      c.String("title"),
		Content:    c.String("content"),
		Category:   types.NoteCategory(c.String("category")),
		Tags:       c.Strings("tags"),
		SaveStatus: types.SaveStatus(c.String("save_status")),
		CreatedAt:  created,
		UpdatedAt:  updated,
	}
	if !n.Category.Valid() {
		n.Category = types.NoteCategoryPersonal
	}
	if n.SaveStatus == "" {
		n.SaveStatus = types.SaveStatusSaved
	}
	var audio types.NoteAudio
	if c.JSON("audio", &audio) && audio.URL != "" {
		n.Audio = &audio
	}
	return n
}

// GoalMapper maps goals to the goals table.
type GoalMapper struct{}

func (GoalMapper) Encode(g types.Goal) Columns {
	milestones := g.Milestones
	if milestones == nil {
		milestones = []types.Milestone{}
	}
	return Columns{
		"title":        g.Title,
		"description":  optText(g.Description),
		"category":     string(g.Category),
		"target_date":  optTime(g.TargetDate),
		"progress":     int64(types.ClampProgress(g.Progress)),
		"completed_at": optTime(g.CompletedAt),
		"plan":         rawJSON(g.GoalPlan),
		"milestones":   rawJSON(milestones),
		"lifecycle":    string(g.Lifecycle),
	}
}

func (GoalMapper) EncodePatch(p types.GoalPatch) Columns {
	c := Columns{}
	if p.Title != nil {
		c["title"] = *p.Title
	}
	if p.Description != nil {
		c["description"] = optText(*p.Description)
	}
	if p.Category != nil {
		c["category"] = string(*p.Category)
	}
	if p.ClearTargetDate {
		c["target_date"] = nil
	} else if p.TargetDate != nil {
		c["target_date"] = optTime(p.TargetDate)
	}
	if p.Progress != nil {
		c["progress"] = int64(types.ClampProgress(*p.Progress))
	}
	if p.ClearCompletedAt {
		c["completed_at"] = nil
	} else if p.CompletedAt != nil {
		c["completed_at"] = optTime(p.CompletedAt)
	}
	if p.Plan != nil {
		c["plan"] = rawJSON(*p.Plan)
	}
	if p.Milestones != nil {
		c["milestones"] = rawJSON(*p.Milestones)
	}
	if p.Lifecycle != nil {
		c["lifecycle"] = string(*p.Lifecycle)
	}
	return c
}

func (GoalMapper) Decode(r Record) types.Goal {
	c := r.Columns
	created, updated := recordTimes(r)
	g := types.Goal{
		ID:          r.LocalID,
		Title:       c.String("title"),
		Description: c.String("description"),
		Category:    GoalCategoryFromRemote(c.String("category")),
		TargetDate:  c.Time("target_date"),
		Progress:    types.ClampProgress(c.Int("progress")),
		Lifecycle:   types.Lifecycle(c.String("lifecycle")),
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	c.JSON("plan", &g.GoalPlan)
	c.JSON("milestones", &g.Milestones)
	if !g.Lifecycle.Valid() {
		g.Lifecycle = types.LifecycleActive
	}
	g.Completed = g.Progress >= 100
	if g.Completed {
		g.CompletedAt = c.Time("completed_at")
		if g.CompletedAt == nil {
			at := updated
			g.CompletedAt = &at
		}
	}
	return g
}

// GoalCategoryFromRemote reads a goal category, coercing values written
// with the note category set by older clients.
func GoalCategoryFromRemote(s string) types.GoalCategory {
	if c := types.GoalCategory(s); c.Valid() {
		return c
	}
	switch types.NoteCategory(s) {
	case types.NoteCategoryWork:
		return types.GoalCategoryCareer
	case types.NoteCategoryLearning:
		return types.GoalCategoryEducation
	}
	return types.GoalCategoryOther
}
