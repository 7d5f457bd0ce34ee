package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/focusflow/internal/types"
)

// Field limits for user-entered content.
const (
	MaxTitleLength = 500
	MaxBodyLength  = 50000
	MaxTagLength   = 100
	MaxTags        = 50
	MaxMinutes     = 24 * 60
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

var (
	priorities = []string{
		string(types.PriorityUrgent), string(types.PriorityImportant),
		string(types.PriorityCanWait), string(types.PriorityDispensable),
	}
	statuses = []string{
		string(types.StatusPending), string(types.StatusInProgress),
		string(types.StatusCompleted), string(types.StatusCancelled),
	}
	lifecycles = []string{
		string(types.LifecycleActive), string(types.LifecyclePaused),
		string(types.LifecycleArchived),
	}
	efforts = []string{
		string(types.EffortLight), string(types.EffortMedium), string(types.EffortHeavy),
	}
	taskTypes = []string{
		string(types.TaskTypeDeepFocus), string(types.TaskTypeOperational),
		string(types.TaskTypeCreative), string(types.TaskTypeQuick),
	}
	recommendations = []string{
		string(types.RecommendDoNow), string(types.RecommendSchedule),
		string(types.RecommendDelegate), string(types.RecommendIgnore),
	}
	noteCategories = []string{
		string(types.NoteCategoryPersonal), string(types.NoteCategoryWork),
		string(types.NoteCategoryIdeas), string(types.NoteCategoryTodo),
		string(types.NoteCategoryLearning), string(types.NoteCategoryOther),
	}
	saveStatuses = []string{
		string(types.SaveStatusSaved), string(types.SaveStatusDraft),
	}
	goalCategories = []string{
		string(types.GoalCategoryEducation), string(types.GoalCategoryFitness),
		string(types.GoalCategoryFinancial), string(types.GoalCategoryCareer),
		string(types.GoalCategoryPersonal), string(types.GoalCategoryOther),
	}
)

// text checks a free-text field. Title fields are also required.
func text(c *Collector, field, value string, max int, required bool) {
	if required {
		if err := ValidateRequired(field, value); err != nil {
			c.Add(err)
			return
		}
	}
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// optionalEnum skips empty values; the stores apply defaults for them.
func optionalEnum(c *Collector, field, value string, allowed []string) {
	if value != "" {
		c.Add(ValidateEnum(field, value, allowed))
	}
}

func tags(c *Collector, field string, values []string) {
	if len(values) > MaxTags {
		c.Add(&ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d tags", MaxTags)})
		return
	}
	for i, tag := range values {
		text(c, fmt.Sprintf("%s[%d]", field, i), tag, MaxTagLength, true)
	}
}

func minutes(c *Collector, field string, value int) {
	c.Add(ValidateRange(field, value, 0, MaxMinutes))
}

// ValidateTask validates a task submitted for creation.
func ValidateTask(t types.Task) []ValidationError {
	var c Collector
	text(&c, "title", t.Title, MaxTitleLength, true)
	text(&c, "description", t.Description, MaxBodyLength, false)
	optionalEnum(&c, "priority", string(t.Priority), priorities)
	optionalEnum(&c, "status", string(t.Status), statuses)
	optionalEnum(&c, "lifecycle", string(t.Lifecycle), lifecycles)
	optionalEnum(&c, "effort_level", string(t.EffortLevel), efforts)
	optionalEnum(&c, "task_type", string(t.TaskType), taskTypes)
	optionalEnum(&c, "ai_recommendation", string(t.AIRecommendation), recommendations)
	text(&c, "category", t.Category, MaxTitleLength, false)
	text(&c, "project", t.Project, MaxTitleLength, false)
	tags(&c, "tags", t.Tags)
	minutes(&c, "estimated_minutes", t.EstimatedMinutes)
	minutes(&c, "actual_minutes", t.ActualMinutes)
	return c.Errors()
}

// ValidateTaskPatch validates the fields a task update names.
func ValidateTaskPatch(p types.TaskPatch) []ValidationError {
	var c Collector
	if p.Title != nil {
		text(&c, "title", *p.Title, MaxTitleLength, true)
	}
	if p.Description != nil {
		text(&c, "description", *p.Description, MaxBodyLength, false)
	}
	if p.Priority != nil {
		c.Add(ValidateEnum("priority", string(*p.Priority), priorities))
	}
	if p.Status != nil {
		c.Add(ValidateEnum("status", string(*p.Status), statuses))
	}
	if p.Lifecycle != nil {
		c.Add(ValidateEnum("lifecycle", string(*p.Lifecycle), lifecycles))
	}
	if p.EffortLevel != nil {
		c.Add(ValidateEnum("effort_level", string(*p.EffortLevel), efforts))
	}
	if p.TaskType != nil {
		c.Add(ValidateEnum("task_type", string(*p.TaskType), taskTypes))
	}
	if p.AIRecommendation != nil {
		c.Add(ValidateEnum("ai_recommendation", string(*p.AIRecommendation), recommendations))
	}
	if p.AIReason != nil {
		text(&c, "ai_reason", *p.AIReason, MaxBodyLength, false)
	}
	if p.Category != nil {
		text(&c, "category", *p.Category, MaxTitleLength, false)
	}
	if p.Project != nil {
		text(&c, "project", *p.Project, MaxTitleLength, false)
	}
	if p.Tags != nil {
		tags(&c, "tags", *p.Tags)
	}
	if p.EstimatedMinutes != nil {
		minutes(&c, "estimated_minutes", *p.EstimatedMinutes)
	}
	if p.ActualMinutes != nil {
		minutes(&c, "actual_minutes", *p.ActualMinutes)
	}
	if p.DueDate != nil && p.ClearDueDate {
		c.Add(&ValidationError{Field: "due_date", Message: "cannot be set and cleared together"})
	}
	return c.Errors()
}

// ValidateNote validates a note submitted for creation. Notes may be
// saved without a title.
func ValidateNote(n types.Note) []ValidationError {
	var c Collector
	text(&c, "title", n.Title, MaxTitleLength, false)
	text(&c, "content", n.Content, MaxBodyLength, false)
	optionalEnum(&c, "category", string(n.Category), noteCategories)
	optionalEnum(&c, "save_status", string(n.SaveStatus), saveStatuses)
	tags(&c, "tags", n.Tags)
	return c.Errors()
}

// ValidateNotePatch validates the fields a note update names.
func ValidateNotePatch(p types.NotePatch) []ValidationError {
	var c Collector
	if p.Title != nil {
		text(&c, "title", *p.Title, MaxTitleLength, false)
	}
	if p.Content != nil {
		text(&c, "content", *p.Content, MaxBodyLength, false)
	}
	if p.Category != nil {
		c.Add(ValidateEnum("category", string(*p.Category), noteCategories))
	}
	if p.SaveStatus != nil {
		c.Add(ValidateEnum("save_status", string(*p.SaveStatus), saveStatuses))
	}
	if p.Tags != nil {
		tags(&c, "tags", *p.Tags)
	}
	if p.Audio != nil && p.ClearAudio {
		c.Add(&ValidationError{Field: "audio", Message: "cannot be set and cleared together"})
	}
	return c.Errors()
}

// ValidateGoal validates a goal submitted for creation.
func ValidateGoal(g types.Goal) []ValidationError {
	var c Collector
	text(&c, "title", g.Title, MaxTitleLength, true)
	text(&c, "description", g.Description, MaxBodyLength, false)
	optionalEnum(&c, "category", string(g.Category), goalCategories)
	optionalEnum(&c, "lifecycle", string(g.Lifecycle), lifecycles)
	c.Add(ValidateRange("progress", g.Progress, 0, 100))
	milestones(&c, g.Milestones)
	return c.Errors()
}

// ValidateGoalPatch validates the fields a goal update names.
func ValidateGoalPatch(p types.GoalPatch) []ValidationError {
	var c Collector
	if p.Title != nil {
		text(&c, "title", *p.Title, MaxTitleLength, true)
	}
	if p.Description != nil {
		text(&c, "description", *p.Description, MaxBodyLength, false)
	}
	if p.Category != nil {
		c.Add(ValidateEnum("category", string(*p.Category), goalCategories))
	}
	if p.Progress != nil {
		c.Add(ValidateRange("progress", *p.Progress, 0, 100))
	}
	if p.Lifecycle != nil {
		c.Add(ValidateEnum("lifecycle", string(*p.Lifecycle), lifecycles))
	}
	if p.Milestones != nil {
		milestones(&c, *p.Milestones)
	}
	if p.TargetDate != nil && p.ClearTargetDate {
		c.Add(&ValidationError{Field: "target_date", Message: "cannot be set and cleared together"})
	}
	return c.Errors()
}

func milestones(c *Collector, ms []types.Milestone) {
	for i, m := range ms {
		text(c, fmt.Sprintf("milestones[%d].title", i), m.Title, MaxTitleLength, true)
	}
}
