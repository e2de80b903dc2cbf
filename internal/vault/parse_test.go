package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

func TestParseLine_Full(t *testing.T) {
	raw := "- [/] Call the bank #errands #phone ⏫ 🔁 FREQ=WEEKLY;BYDAY=MO 🛫 2024-05-01 ⏳ 2024-05-10 📅 2024-05-15 %%sync:uid-77%%"

	parsed, ok := parseLine(raw)
	require.True(t, ok)

	task := parsed.Task
	assert.Equal(t, "uid-77", task.UID)
	assert.Equal(t, "Call the bank", task.Title)
	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, []string{"errands", "phone"}, task.Tags)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", task.Recurrence)
	assert.Equal(t, models.NewDate(2024, time.May, 1), task.Start)
	assert.Equal(t, models.NewDate(2024, time.May, 10), task.Scheduled)
	assert.Equal(t, models.NewDate(2024, time.May, 15), task.Due)
	assert.True(t, task.Completed.IsZero())
}

func TestParseLine_StatusChars(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Status
	}{
		{"- [ ] open", models.StatusTodo},
		{"- [/] started", models.StatusInProgress},
		{"- [x] finished", models.StatusDone},
		{"- [X] finished loud", models.StatusDone},
		{"- [-] dropped", models.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			parsed, ok := parseLine(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.want, parsed.Task.Status)
		})
	}
}

func TestParseLine_NotATask(t *testing.T) {
	for _, raw := range []string{
		"just prose",
		"- a plain bullet",
		"# A heading",
		"",
		"- [?] unknown checkbox state",
	} {
		_, ok := parseLine(raw)
		assert.False(t, ok, "line %q should not parse as a task", raw)
	}
}

func TestParseLine_NoMarkers(t *testing.T) {
	parsed, ok := parseLine("- [ ] Plain task without any metadata")
	require.True(t, ok)

	task := parsed.Task
	assert.Empty(t, task.UID)
	assert.Equal(t, "Plain task without any metadata", task.Title)
	assert.Equal(t, models.PriorityNone, task.Priority)
	assert.Empty(t, task.Tags)
	assert.True(t, task.Due.IsZero())
}

func TestParseLine_IndentPreserved(t *testing.T) {
	parsed, ok := parseLine("    - [ ] nested task %%sync:u1%%")
	require.True(t, ok)
	assert.Equal(t, "    ", parsed.Indent)
}

func TestParseLine_MalformedDateIgnored(t *testing.T) {
	parsed, ok := parseLine("- [ ] Task 📅 not-a-date %%sync:u1%%")
	require.True(t, ok)
	assert.True(t, parsed.Task.Due.IsZero())
}

func TestRenderLine_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		task models.Task
	}{
		{
			name: "minimal",
			task: models.Task{
				UID:      "u1",
				Title:    "Simple",
				Status:   models.StatusTodo,
				Priority: models.PriorityNone,
			},
		},
		{
			name: "everything set",
			task: models.Task{
				UID:        "u2",
				Title:      "Big one",
				Status:     models.StatusDone,
				Priority:   models.PriorityLowest,
				Tags:       []string{"work", "q3"},
				Recurrence: "FREQ=MONTHLY",
				Start:      models.NewDate(2024, time.January, 1),
				Scheduled:  models.NewDate(2024, time.January, 5),
				Due:        models.NewDate(2024, time.January, 10),
				Completed:  models.NewDate(2024, time.January, 9),
			},
		},
		{
			name: "cancelled with medium priority",
			task: models.Task{
				UID:      "u3",
				Title:    "Not happening",
				Status:   models.StatusCancelled,
				Priority: models.PriorityMedium,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := renderLine(&tt.task, "")
			parsed, ok := parseLine(rendered)
			require.True(t, ok, "rendered line did not parse: %q", rendered)
			assert.True(t, tt.task.Equal(&parsed.Task),
				"round-trip changed the task:\n got %+v\nwant %+v\nline %q", parsed.Task, tt.task, rendered)
		})
	}
}

func TestRenderLine_AllPriorities(t *testing.T) {
	for _, priority := range []models.Priority{
		models.PriorityNone, models.PriorityLowest, models.PriorityLow,
		models.PriorityMedium, models.PriorityHigh, models.PriorityHighest,
	} {
		task := models.Task{UID: "u", Title: "p", Status: models.StatusTodo, Priority: priority}
		parsed, ok := parseLine(renderLine(&task, ""))
		require.True(t, ok)
		assert.Equal(t, priority, parsed.Task.Priority)
	}
}
