// Package triage scores and categorizes incoming tasks against the user's
// strategic context using Gemini.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/gemini"
	"github.com/kairosbot/kairos/internal/store"
)

// ContextSource supplies the strategic context string built from the vault.
type ContextSource interface {
	ContextString() string
}

// Result is the structured triage verdict for one task input.
type Result struct {
	TaskName             string `json:"task_name"`
	Category             string `json:"category"`
	Priority             string `json:"priority"`
	DueDate              string `json:"due_date"`
	DueTime              string `json:"due_time"`
	Recurrence           string `json:"recurrence"`
	SchedulingUnclear    bool   `json:"scheduling_unclear"`
	Reasoning            string `json:"reasoning"`
	AlignmentScore       int    `json:"alignment_score"`
	Pushback             string `json:"pushback"`
	SuggestedAlternative string `json:"suggested_alternative"`
	ClarificationNeeded  string `json:"clarification_needed"`
}

// EditFields holds the task fields an edit instruction wants to change.
// Empty fields are left untouched.
type EditFields struct {
	TaskName string `json:"task_name"`
	Priority string `json:"priority"`
	Category string `json:"category"`
	DueDate  string `json:"due_date"`
	DueTime  string `json:"due_time"`
}

// Engine runs task triage, edit parsing, schedule parsing and advisor queries.
type Engine struct {
	gen      gemini.Generator
	store    *store.Store
	contexts ContextSource
	model    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates a triage engine backed by the fast Gemini model.
func NewEngine(gen gemini.Generator, st *store.Store, contexts ContextSource, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		gen:      gen,
		store:    st,
		contexts: contexts,
		model:    cfg.Gemini.FlashModel,
		logger:   logger.Named("triage"),
		now:      time.Now,
	}
}

const overrideInstruction = `
HUMAN OVERRIDE ACTIVE: The user has explicitly invoked "human override".
You MUST:
1. Respect ANY priority, category, or date the user specifies - do NOT override their choice
2. Set pushback to null (no pushback when user overrides)
3. Set suggested_alternative to null
4. If user says "priority HIGH", set priority to HIGH regardless of your analysis
5. Still parse dates correctly
`

// TriageTask categorizes and prioritizes a task. It never returns an error:
// when the model call or parse fails, the caller gets a MEDIUM-priority
// fallback built from the input so the capture flow keeps working.
func (e *Engine) TriageTask(ctx context.Context, userInput string) *Result {
	now := e.now()
	currentDate := now.Format("2006-01-02")
	currentDay := now.Format("Monday")

	patterns, err := e.store.ActivePatterns(ctx, 0.7)
	if err != nil {
		e.logger.Warn("Failed to load active patterns", zap.Error(err))
	}
	patternsStr := "No recurring patterns detected yet."
	if len(patterns) > 0 {
		var b strings.Builder
		for _, p := range patterns {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		patternsStr = strings.TrimRight(b.String(), "\n")
	}

	override := ""
	if strings.Contains(strings.ToLower(userInput), "human override") {
		override = overrideInstruction
		e.logger.Info("Human override detected in input")
	}

	prompt := fmt.Sprintf(`
You are an intelligent triage agent for "Kairos - Life Sorter".
Your goal is to categorize and prioritize a new task based on the user's strategic context and learned patterns.

CURRENT DATE: %[1]s (%[2]s)

USER STRATEGIC CONTEXT:
%[3]s

LEARNED USER PATTERNS (Overrides):
%[4]s

NEW INPUT:
%[5]s

%[6]s
ANALYSIS RULES:
1. Alignment: Does this align with "Get Fit", "Career Growth", or "Live a Good Quality Life" (daily maintenance/hygiene)?
2. Priority:
   - HIGH: Directly impacts the critical career deadline or critical health.
   - MEDIUM: Aligned with Career/Fitness. Routine "Quality Life" tasks (hygiene, chores) should be MEDIUM or LOW unless critical.
   - LOW: Tangential, curiosity-driven, hobbies, or minor daily maintenance.
3. Pushback:
   - If a task is misaligned (not in the 3 pillars), provide "Strategic Pushback".
   - Do NOT push back on "Live a Good Quality Life" tasks (brushing, showering, etc.), but categorize them as MEDIUM/LOW.
   - Push back on excessive distractions (e.g., "watch 10 hours of TV").
4. Alternatives: If priority is LOW and task is a distraction, suggest 1-2 specific high-priority alternatives.

DATE PARSING RULES:
- ALWAYS convert natural language dates to YYYY-MM-DD format using the CURRENT DATE above as reference.
- "saturday" or "coming saturday" -> Calculate the next Saturday from %[1]s
- "tomorrow" -> %[1]s + 1 day
- "next week" -> %[1]s + 7 days
- "day after tomorrow" -> %[1]s + 2 days
- If a date is mentioned (even informally like "friday", "this weekend"), you MUST return a valid YYYY-MM-DD. If unable, ask user for clarification.
- Only return null if the user explicitly says "no date", "unscheduled", or truly never mentions any timeframe.

OUTPUT FORMAT (JSON ONLY):
{
  "task_name": "Concise version of the task",
  "category": "Career | Fitness | Projects | Personal | Hobby",
  "priority": "HIGH | MEDIUM | LOW",
  "due_date": "YYYY-MM-DD (parse natural language dates!) or null if truly no date mentioned",
  "due_time": "HH:MM (24hr format) or null if not mentioned or only a date was given",
  "recurrence": "daily | weekly | weekly:Mon,Wed | monthly | every X days | null",
  "scheduling_unclear": true if user mentioned deadline vaguely like 'soon'/'later'/'eventually' or false otherwise,
  "reasoning": "Brief explanation of why this priority/category was chosen",
  "alignment_score": 0-10,
  "pushback": "Message to user if priority is LOW or alignment is weak, otherwise null",
  "suggested_alternative": "A suggested high-priority task based on context, otherwise null",
  "clarification_needed": "Ask a specific question if the task purpose is unclear, otherwise null"
}
`, currentDate, currentDay, e.contexts.ContextString(), patternsStr, userInput, override)

	text, err := e.gen.Generate(ctx, e.model, prompt)
	if err != nil {
		e.logger.Error("Triage failed", zap.Error(err))

		return e.fallback(userInput, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(gemini.ExtractJSON(text)), &result); err != nil {
		e.logger.Error("Triage response parse failed", zap.Error(err))

		return e.fallback(userInput, err)
	}

	return &result
}

func (e *Engine) fallback(userInput string, cause error) *Result {
	name := userInput
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}

	return &Result{
		TaskName:       name,
		Category:       "Unknown",
		Priority:       store.PriorityMedium,
		Reasoning:      fmt.Sprintf("Triage engine error: %v", cause),
		AlignmentScore: 0,
	}
}

// ParseEditRequest extracts the fields a natural-language edit instruction
// wants to change. An unparseable instruction yields an empty set, not an
// error, matching the forgiving behaviour of task capture.
func (e *Engine) ParseEditRequest(ctx context.Context, instruction string) EditFields {
	prompt := fmt.Sprintf(`
You are a helper parsing edit requests for a todo list task.
CURRENT DATE: %s

USER INSTRUCTION: "%s"

Extract the fields the user wants to change.
Fields allowed: task_name, priority (HIGH/MEDIUM/LOW), category, due_date (YYYY-MM-DD), due_time (HH:MM).

- If user mentions "tomorrow", "friday", etc., calculate the YYYY-MM-DD date based on Current Date.
- Return ONLY a JSON object with the fields that need updating.
- Ignore polite conversational text.

Example Input: "change priority to high and move to personal category"
Example Output: { "priority": "HIGH", "category": "Personal" }

Output JSON:
`, e.now().Format("2006-01-02"), instruction)

	text, err := e.gen.Generate(ctx, e.model, prompt)
	if err != nil {
		e.logger.Error("Edit parse failed", zap.Error(err))

		return EditFields{}
	}

	var fields EditFields
	if err := json.Unmarshal([]byte(gemini.ExtractJSON(text)), &fields); err != nil {
		e.logger.Error("Edit response parse failed", zap.Error(err))

		return EditFields{}
	}

	return fields
}

// ParseSchedule turns a natural-language date/time string into a concrete
// (due date, due time) pair. The time may be empty.
func (e *Engine) ParseSchedule(ctx context.Context, input string) (string, string, error) {
	prompt := fmt.Sprintf(`
Parse the following date/time string and return JSON:
Input: "%s"
Current date: %s

Return ONLY valid JSON:
{
  "due_date": "YYYY-MM-DD",
  "due_time": "HH:MM" or null if no time specified
}
`, input, e.now().Format("2006-01-02"))

	text, err := e.gen.Generate(ctx, e.model, prompt)
	if err != nil {
		return "", "", fmt.Errorf("parsing schedule: %w", err)
	}

	var parsed struct {
		DueDate string `json:"due_date"`
		DueTime string `json:"due_time"`
	}
	if err := json.Unmarshal([]byte(gemini.ExtractJSON(text)), &parsed); err != nil {
		return "", "", fmt.Errorf("parsing schedule response: %w", err)
	}
	if parsed.DueDate == "" {
		return "", "", fmt.Errorf("no date recognized in %q", input)
	}

	return parsed.DueDate, parsed.DueTime, nil
}

// Answer responds to a free-form question as a strategic advisor over the
// vault context and the supplied database context.
func (e *Engine) Answer(ctx context.Context, question, dbContext string) (string, error) {
	prompt := fmt.Sprintf(`
You are Kairos, a strategic advisor. Answer the following question based on the user's vault context and recent tasks.

VAULT CONTEXT:
%s

%s

USER QUESTION:
%s

Provide a concise, helpful answer. If the answer is in the recent tasks, highlight that.
`, e.contexts.ContextString(), dbContext, question)

	answer, err := e.gen.Generate(ctx, e.model, prompt)
	if err != nil {
		return "", fmt.Errorf("answering query: %w", err)
	}

	return answer, nil
}
