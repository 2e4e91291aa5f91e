// Package patterns learns recurring user behaviour from pushback overrides
// and feeds it back into triage.
package patterns

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/gemini"
	"github.com/kairosbot/kairos/internal/store"
)

// noPatternSentinel is what the model answers when no theme emerges.
const noPatternSentinel = "NONE"

// Manager detects recurring themes in force-synced tasks.
type Manager struct {
	gen    gemini.Generator
	store  *store.Store
	model  string
	logger *zap.Logger
}

// NewManager creates the pattern manager on the fast Gemini model.
func NewManager(gen gemini.Generator, st *store.Store, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		gen:    gen,
		store:  st,
		model:  cfg.Gemini.FlashModel,
		logger: logger.Named("patterns"),
	}
}

// AnalyzeOverrides scans recent manual sync events and asks the model for a
// recurring theme. Fewer than three overrides is not enough signal; a "NONE"
// answer records nothing.
func (m *Manager) AnalyzeOverrides(ctx context.Context) error {
	m.logger.Info("Analyzing manual overrides for pattern detection...")

	details, err := m.store.RecentAuditDetails(ctx, "manual_sync", 20)
	if err != nil {
		return fmt.Errorf("loading override history: %w", err)
	}
	if len(details) < 3 {
		m.logger.Info("Not enough overrides to detect patterns yet.",
			zap.Int("count", len(details)))

		return nil
	}

	var lines []string
	for _, detail := range details {
		task, err := m.taskFromDetail(ctx, detail)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("Task: %s | Category: %s | AI Reasoning: %s",
			task.Task, task.Category, task.Reasoning))
	}
	if len(lines) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(`
Analyze the following list of tasks that the user FORCED to sync, overriding my strategic pushback.
Identify if there is a recurring theme or pattern (e.g., "The user always wants to sync grocery lists despite low career alignment").

OVERRIDDEN TASKS:
%s

If a pattern is found, output a single sentence description of the pattern.
If no clear pattern is found, output "NONE".

Format: A simple string.
`, strings.Join(lines, "\n"))

	answer, err := m.gen.Generate(ctx, m.model, prompt)
	if err != nil {
		return fmt.Errorf("pattern analysis: %w", err)
	}

	pattern := strings.TrimSpace(answer)
	if pattern == noPatternSentinel || pattern == "" {
		return nil
	}

	if err := m.store.SavePattern(ctx, "Override", pattern, 0.8); err != nil {
		return fmt.Errorf("saving pattern: %w", err)
	}

	m.logger.Info("New pattern detected", zap.String("pattern", pattern))
	m.store.LogAudit(ctx, "pattern_detected", pattern)

	return nil
}

// taskFromDetail resolves a "Force synced todo <id>" audit entry to its task.
func (m *Manager) taskFromDetail(ctx context.Context, detail string) (*store.Task, error) {
	_, idPart, found := strings.Cut(detail, "todo ")
	if !found {
		return nil, fmt.Errorf("no todo reference in %q", detail)
	}

	id, err := strconv.ParseInt(strings.Fields(idPart)[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad todo id in %q: %w", detail, err)
	}

	return m.store.GetTask(ctx, id)
}
