// Package activity analyzes hourly check-in replies and aggregates daily
// productivity reports.
package activity

import (
	"context"
	"database/sql"
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

// Analysis is the structured verdict for one hourly activity reply.
type Analysis struct {
	ActivitySummary  string `json:"activity_summary"`
	ProductivityType string `json:"productivity_type"`
	MatchedTodoID    *int64 `json:"matched_todo_id"`
	AlignmentScore   int    `json:"alignment_score"`
	Category         string `json:"category"`
	Reasoning        string `json:"reasoning"`
	Feedback         string `json:"feedback"`
}

// Analyzer classifies check-in replies against the active todo list.
type Analyzer struct {
	gen      gemini.Generator
	store    *store.Store
	contexts ContextSource
	model    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyzer creates an analyzer on the fast Gemini model.
func NewAnalyzer(gen gemini.Generator, st *store.Store, contexts ContextSource, cfg *config.Config, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		gen:      gen,
		store:    st,
		contexts: contexts,
		model:    cfg.Gemini.FlashModel,
		logger:   logger.Named("activity"),
		now:      time.Now,
	}
}

// Analyze classifies the reply to a check-in, persists the activity log and
// marks the check-in completed. Model trouble degrades to a neutral
// "beneficial" verdict instead of failing the conversation.
func (a *Analyzer) Analyze(ctx context.Context, userResponse string, checkInID int64) (*Analysis, error) {
	todos, err := a.store.ListActiveFocus(ctx, 20)
	if err != nil {
		a.logger.Error("Failed to load todos", zap.Error(err))
	}

	analysis := a.generate(ctx, userResponse, todos)

	log := &store.ActivityLog{
		Timestamp:        a.now(),
		UserResponse:     userResponse,
		ActivitySummary:  analysis.ActivitySummary,
		ProductivityType: analysis.ProductivityType,
		AlignmentScore:   analysis.AlignmentScore,
		Category:         analysis.Category,
		Reasoning:        analysis.Reasoning,
		CheckInID:        checkInID,
	}
	if analysis.MatchedTodoID != nil {
		log.MatchedTaskID = sql.NullInt64{Int64: *analysis.MatchedTodoID, Valid: true}
	}
	if _, err := a.store.InsertActivityLog(ctx, log); err != nil {
		return nil, fmt.Errorf("saving activity log: %w", err)
	}

	if err := a.store.CompleteCheckIn(ctx, checkInID, a.now()); err != nil {
		return nil, fmt.Errorf("completing check-in %d: %w", checkInID, err)
	}

	return analysis, nil
}

func (a *Analyzer) generate(ctx context.Context, userResponse string, todos []store.Task) *Analysis {
	todosText := "No active high-priority todos found."
	if len(todos) > 0 {
		var b strings.Builder
		for _, t := range todos {
			fmt.Fprintf(&b, "- [ID: %d] %s (Category: %s, Priority: %s)\n", t.ID, t.Task, t.Category, t.Priority)
		}
		todosText = strings.TrimRight(b.String(), "\n")
	}

	prompt := fmt.Sprintf(`You are an AI productivity coach analyzing hourly activity logs.

USER CONTEXT:
%s

ACTIVE TODO LIST:
%s

USER'S HOURLY ACTIVITY:
"%s"

TASK:
Analyze this activity and determine:
1. Is it directly working on a todo? If yes, which one (provide ID)?
2. Productivity type:
   - "aligned": Working on a specific todo from the list
   - "beneficial": Productive and goal-aligned but not on todo list
   - "wasted": Unproductive time not contributing to goals
3. Alignment score: 0-10 (0=totally wasted, 10=perfectly aligned with primary goal)
4. Category: Career, Fitness, Personal, Entertainment, etc.
5. Brief reasoning
6. Encouraging feedback message (1-2 sentences)

IMPORTANT:
- Be honest about "wasted" time - YouTube/social media/gaming should be marked as wasted unless directly work-related
- Only mark as "aligned" if it directly matches a todo
- Be encouraging but truthful

Respond ONLY with valid JSON (no markdown, no extra text):
{
  "activity_summary": "Brief summary of what user did",
  "productivity_type": "aligned|beneficial|wasted",
  "matched_todo_id": 15 or null,
  "alignment_score": 7,
  "category": "Career",
  "reasoning": "Why you categorized it this way",
  "feedback": "Encouraging message for user"
}`, a.contexts.ContextString(), todosText, userResponse)

	text, err := a.gen.Generate(ctx, a.model, prompt)
	if err != nil {
		a.logger.Error("Activity analysis failed", zap.Error(err))

		return a.fallback(userResponse, "Activity logged successfully.", err.Error())
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(gemini.ExtractJSON(text)), &analysis); err != nil {
		a.logger.Error("Failed to parse analysis response", zap.Error(err), zap.String("response", text))

		return a.fallback(userResponse,
			"Activity logged. I had trouble analyzing it automatically.",
			"Analysis pending - manual review required")
	}

	return &analysis
}

func (a *Analyzer) fallback(userResponse, feedback, reasoning string) *Analysis {
	summary := userResponse
	if runes := []rune(summary); len(runes) > 100 {
		summary = string(runes[:100])
	}

	return &Analysis{
		ActivitySummary:  summary,
		ProductivityType: store.ActivityBeneficial,
		AlignmentScore:   5,
		Category:         "Unknown",
		Reasoning:        reasoning,
		Feedback:         feedback,
	}
}
