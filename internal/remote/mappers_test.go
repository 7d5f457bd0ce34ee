package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hyperengineering/focusflow/internal/types"
)

func TestTaskMapper_DecodePermissiveDefaults(t *testing.T) {
	// Given: A row with missing and unexpected values
	r := Record{
		LocalID:   "t",
		CreatedAt: t0,
		Columns: Columns{
			"title":    "legacy",
			"priority": "whenever",
			"status":   nil,
			"tags":     nil,
		},
	}

	got := TaskMapper{}.Decode(r)

	// Then: Fallbacks are applied rather than rejecting the row
	if got.Priority != types.PriorityCanWait || got.Status != types.StatusPending || got.Lifecycle != types.LifecycleActive {
		t.Errorf("defaults = %q/%q/%q", got.Priority, got.Status, got.Lifecycle)
	}
	if !got.UpdatedAt.Equal(t0) {
		t.Errorf("updated_at should fall back to created_at, got %v", got.UpdatedAt)
	}
	if got.Tags == nil {
		t.Error("tags should default to an empty slice")
	}
}

func TestTaskMapper_DecodeCompletedWithoutTimestamp(t *testing.T) {
	r := Record{LocalID: "t", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour), Columns: Columns{"status": "completed"}}
	got := TaskMapper{}.Decode(r)
	if got.CompletedAt == nil || !got.CompletedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("completed_at = %v", got.CompletedAt)
	}
}

func TestTaskMapper_DecodeMissingCreatedAt(t *testing.T) {
	before := time.Now().Add(-time.Second)
	got := TaskMapper{}.Decode(Record{LocalID: "t", Columns: Columns{}})
	if got.CreatedAt.Before(before) {
		t.Errorf("created_at should fall back to now, got %v", got.CreatedAt)
	}
}

func TestTaskMapper_EncodeNullsOptionals(t *testing.T) {
	c := TaskMapper{}.Encode(types.Task{Title: "x"})
	for _, name := range []string{"description", "due_date", "estimated_minutes", "effort_level"} {
		if v, ok := c[name]; !ok || v != nil {
			t.Errorf("%s = %#v, want explicit NULL", name, v)
		}
	}
	if s, ok := c["tags"].([]string); !ok || s == nil {
		t.Errorf("tags = %#v, want empty array", c["tags"])
	}
}

func TestTaskMapper_EncodePatchOnlyNamedFields(t *testing.T) {
	status := types.StatusCompleted
	at := t0
	c := TaskMapper{}.EncodePatch(types.TaskPatch{Status: &status, CompletedAt: &at})
	if len(c) != 2 {
		t.Errorf("patch columns = %v", c)
	}
	if c.String("status") != "completed" || c.Time("completed_at") == nil {
		t.Errorf("patch columns = %v", c)
	}
}

func TestNoteMapper_AudioRoundTrip(t *testing.T) {
	n := types.Note{ID: "n", Title: "memo", Category: types.NoteCategoryIdeas,
		Audio: &types.NoteAudio{URL: "https://cdn/x.webm", DurationMs: 4200, CreatedAt: t0}}
	c := NoteMapper{}.Encode(n)

	got := NoteMapper{}.Decode(Record{LocalID: "n", CreatedAt: t0, UpdatedAt: t0, Columns: c})
	if got.Audio == nil || got.Audio.DurationMs != 4200 || got.Audio.URL != n.Audio.URL {
		t.Errorf("audio = %+v", got.Audio)
	}
	if got.Category != types.NoteCategoryIdeas {
		t.Errorf("category = %q", got.Category)
	}
}

func TestNoteMapper_DecodeFallbackCategory(t *testing.T) {
	got := NoteMapper{}.Decode(Record{LocalID: "n", CreatedAt: t0, Columns: Columns{"category": "education"}})
	if got.Category != types.NoteCategoryPersonal {
		t.Errorf("category = %q, want personal", got.Category)
	}
}

func TestGoalCategoryFromRemote(t *testing.T) {
	tests := map[string]types.GoalCategory{
		"fitness":  types.GoalCategoryFitness,
		"personal": types.GoalCategoryPersonal,
		"work":     types.GoalCategoryCareer,
		"learning": types.GoalCategoryEducation,
		"ideas":    types.GoalCategoryOther,
		"todo":     types.GoalCategoryOther,
		"":         types.GoalCategoryOther,
	}
	for in, want := range tests {
		if got := GoalCategoryFromRemote(in); got != want {
			t.Errorf("GoalCategoryFromRemote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGoalMapper_RoundTrip(t *testing.T) {
	target := t0.Add(30 * 24 * time.Hour)
	g := types.Goal{
		ID: "g", Title: "Save", Category: types.GoalCategoryFinancial, TargetDate: &target, Progress: 40,
		GoalPlan:   types.GoalPlan{TargetAmount: 1000, CurrentAmount: 400, Currency: "USD"},
		Milestones: []types.Milestone{{ID: "m1", Title: "half", Completed: false}},
		Lifecycle:  types.LifecycleActive,
	}
	c := GoalMapper{}.Encode(g)

	// Simulate the driver returning JSON columns as raw bytes
	for _, k := range []string{"plan", "milestones"} {
		c[k] = []byte(c[k].(json.RawMessage))
	}
	got := GoalMapper{}.Decode(Record{LocalID: "g", CreatedAt: t0, UpdatedAt: t0, Columns: c})

	if got.Category != types.GoalCategoryFinancial || got.Progress != 40 || got.Completed {
		t.Errorf("decoded = %+v", got)
	}
	if got.TargetAmount != 1000 || got.Currency != "USD" {
		t.Errorf("plan = %+v", got.GoalPlan)
	}
	if len(got.Milestones) != 1 || got.Milestones[0].ID != "m1" {
		t.Errorf("milestones = %+v", got.Milestones)
	}
}

func TestGoalMapper_DecodeDerivesCompletion(t *testing.T) {
	got := GoalMapper{}.Decode(Record{LocalID: "g", CreatedAt: t0, UpdatedAt: t0.Add(time.Hour),
		Columns: Columns{"progress": int64(100)}})
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("completion = %v / %v", got.Completed, got.CompletedAt)
	}
}

func TestColumns_TolerantGetters(t *testing.T) {
	c := Columns{
		"n": float64(3),
		"s": []byte("bytes"),
		"a": []any{"x", 1, "y"},
		"t": "not a time",
	}
	if c.Int("n") != 3 {
		t.Error("Int should accept float64")
	}
	if c.String("s") != "bytes" {
		t.Error("String should accept []byte")
	}
	if got := c.Strings("a"); len(got) != 2 {
		t.Errorf("Strings = %v", got)
	}
	if c.Time("t") != nil {
		t.Error("malformed time should be nil")
	}
	if c.Int("missing") != 0 || c.String("missing") != "" {
		t.Error("missing columns should yield zero values")
	}
}
