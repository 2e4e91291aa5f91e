package triage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/store"
)

type fakeGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastModel  string
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	f.lastModel = model
	f.lastPrompt = prompt

	return f.response, f.err
}

type staticContext string

func (s staticContext) ContextString() string { return string(s) }

func newTestEngine(t *testing.T, gen *fakeGenerator) *Engine {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{}
	cfg.Gemini.FlashModel = "gemini-3-flash-preview"

	e := NewEngine(gen, st, staticContext("Primary goal: career growth"), cfg, zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC) }

	return e
}

func TestTriageTaskParsesVerdict(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n" + `{
		"task_name": "Submit application",
		"category": "Career",
		"priority": "HIGH",
		"due_date": "2026-08-28",
		"due_time": null,
		"recurrence": null,
		"scheduling_unclear": false,
		"reasoning": "Directly impacts the career deadline",
		"alignment_score": 9,
		"pushback": null,
		"suggested_alternative": null,
		"clarification_needed": null
	}` + "\n```"}

	e := newTestEngine(t, gen)
	result := e.TriageTask(context.Background(), "submit application by friday")

	assert.Equal(t, "Submit application", result.TaskName)
	assert.Equal(t, "HIGH", result.Priority)
	assert.Equal(t, "2026-08-28", result.DueDate)
	assert.Empty(t, result.DueTime)
	assert.Equal(t, 9, result.AlignmentScore)
	assert.Equal(t, "gemini-3-flash-preview", gen.lastModel)
	assert.Contains(t, gen.lastPrompt, "CURRENT DATE: 2026-08-25 (Tuesday)")
	assert.Contains(t, gen.lastPrompt, "Primary goal: career growth")
	assert.NotContains(t, gen.lastPrompt, "HUMAN OVERRIDE ACTIVE")
}

func TestTriageTaskHumanOverride(t *testing.T) {
	gen := &fakeGenerator{response: `{"task_name": "Bake bread", "priority": "HIGH"}`}
	e := newTestEngine(t, gen)

	e.TriageTask(context.Background(), "Human Override: bake bread, priority HIGH")

	assert.Contains(t, gen.lastPrompt, "HUMAN OVERRIDE ACTIVE")
}

func TestTriageTaskFallsBackOnError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	e := newTestEngine(t, gen)

	long := strings.Repeat("plan the conference trip ", 10)
	result := e.TriageTask(context.Background(), long)

	assert.Equal(t, store.PriorityMedium, result.Priority)
	assert.Equal(t, "Unknown", result.Category)
	assert.Len(t, []rune(result.TaskName), 50)
	assert.Contains(t, result.Reasoning, "quota exceeded")
}

func TestTriageTaskFallsBackOnBadJSON(t *testing.T) {
	gen := &fakeGenerator{response: "sorry, I cannot help with that"}
	e := newTestEngine(t, gen)

	result := e.TriageTask(context.Background(), "short task")

	assert.Equal(t, "short task", result.TaskName)
	assert.Equal(t, store.PriorityMedium, result.Priority)
}

func TestTriageTaskIncludesActivePatterns(t *testing.T) {
	gen := &fakeGenerator{response: `{"task_name": "x"}`}
	e := newTestEngine(t, gen)

	require.NoError(t, e.store.SavePattern(context.Background(), "Override", "User always syncs grocery lists", 0.8))

	e.TriageTask(context.Background(), "buy groceries")

	assert.Contains(t, gen.lastPrompt, "- User always syncs grocery lists")
}

func TestParseEditRequest(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n{\"priority\": \"HIGH\", \"category\": \"Personal\"}\n```"}
	e := newTestEngine(t, gen)

	fields := e.ParseEditRequest(context.Background(), "change priority to high and move to personal")

	assert.Equal(t, "HIGH", fields.Priority)
	assert.Equal(t, "Personal", fields.Category)
	assert.Empty(t, fields.DueDate)
}

func TestParseEditRequestSwallowsErrors(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	e := newTestEngine(t, gen)

	assert.Equal(t, EditFields{}, e.ParseEditRequest(context.Background(), "whatever"))
}

func TestParseSchedule(t *testing.T) {
	gen := &fakeGenerator{response: `{"due_date": "2026-08-28", "due_time": "15:00"}`}
	e := newTestEngine(t, gen)

	date, tm, err := e.ParseSchedule(context.Background(), "friday 3pm")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-28", date)
	assert.Equal(t, "15:00", tm)
}

func TestParseScheduleNoDate(t *testing.T) {
	gen := &fakeGenerator{response: `{"due_date": null, "due_time": null}`}
	e := newTestEngine(t, gen)

	_, _, err := e.ParseSchedule(context.Background(), "someday maybe")
	assert.Error(t, err)
}

func TestAnswer(t *testing.T) {
	gen := &fakeGenerator{response: "Focus on the application first."}
	e := newTestEngine(t, gen)

	answer, err := e.Answer(context.Background(), "what should I do next?", "RECENT TASKS:\n- Submit application")
	require.NoError(t, err)
	assert.Equal(t, "Focus on the application first.", answer)
	assert.Contains(t, gen.lastPrompt, "RECENT TASKS")
	assert.Contains(t, gen.lastPrompt, "what should I do next?")
}
