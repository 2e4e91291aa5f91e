package bot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/session"
	"github.com/kairosbot/kairos/internal/store"
	"github.com/kairosbot/kairos/internal/vault"
)

// schedulingClarification is appended when triage returns no due date and no
// question of its own, so every capture ends scheduled or deliberately not.
const schedulingClarification = "When would you like to complete this? " +
	"Give me a date (e.g., 'Friday'), date+time (e.g., 'tomorrow at 3pm'), " +
	"or say 'unscheduled' to add to backlog."

// processTask triages free text into a task. With updateID set the existing
// row is rewritten instead (edits and clarification replies).
func (s *Service) processTask(ctx context.Context, chatID int64, text string, updateID int64) {
	statusID := s.sendStatus(ctx, chatID, "🤔 Analyzing task...")

	res := s.engine.TriageTask(ctx, text)
	hasDue := res.DueDate != ""
	if !hasDue && res.ClarificationNeeded == "" && !res.SchedulingUnclear {
		res.ClarificationNeeded = schedulingClarification
	}

	name := res.TaskName
	if name == "" {
		name = text
	}
	task := &store.Task{
		Task:        name,
		RawInput:    text,
		Category:    res.Category,
		Priority:    res.Priority,
		DueDate:     sql.NullString{String: res.DueDate, Valid: res.DueDate != ""},
		DueTime:     sql.NullString{String: res.DueTime, Valid: res.DueTime != ""},
		IsScheduled: hasDue,
		Status:      store.TaskStatusPending,
		Reasoning:   res.Reasoning,
		Recurrence:  sql.NullString{String: res.Recurrence, Valid: res.Recurrence != ""},
	}

	todoID := updateID
	if updateID != 0 {
		if err := s.store.UpdateTaskFromTriage(ctx, updateID, task); err != nil {
			s.logger.Error("Failed to update task", zap.Int64("taskID", updateID), zap.Error(err))
		}
	} else {
		id, err := s.store.InsertTask(ctx, task)
		if err != nil {
			s.logger.Error("Failed to insert task", zap.Error(err))
		} else {
			todoID = id
		}
	}

	verb := "Captured"
	if updateID != 0 {
		verb = "Updated"
	}
	parts := []string{
		fmt.Sprintf("✅ **Task %s [ID: %d]**: %s", verb, todoID, name),
		fmt.Sprintf("📊 **Priority**: %s", res.Priority),
		fmt.Sprintf("📂 **Category**: %s", res.Category),
		fmt.Sprintf("📅 **Due**: %s", vault.FormatDueDisplay(res.DueDate, res.DueTime, hasDue)),
	}
	if res.Recurrence != "" {
		parts = append(parts, fmt.Sprintf("🔁 **Recurrence**: %s", res.Recurrence))
	}

	// LOW priority waits for an explicit Force Sync; clarification waits for
	// the final shape of the task.
	if s.writer != nil && res.Priority != store.PriorityLow && res.ClarificationNeeded == "" {
		if updateID != 0 {
			if err := s.fullSync(ctx); err != nil {
				s.logger.Error("Vault sync failed", zap.Error(err))
			} else {
				parts = append(parts, "📝 *Synced to Obsidian (Updated)*")
			}
		} else {
			task.ID = todoID
			if err := s.writer.AppendTask(task); err != nil {
				s.logger.Error("Vault append failed", zap.Error(err))
			} else {
				parts = append(parts, "📝 *Synced to Obsidian*")
			}
		}
	}

	parts = append(parts, fmt.Sprintf("\n**Reasoning**: %s", res.Reasoning))

	var markup models.ReplyMarkup
	if res.Pushback != "" {
		parts = append(parts, fmt.Sprintf("\n✋ **Pushback**: %s", res.Pushback))
		if res.Priority == store.PriorityLow {
			markup = models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "🚀 Force Sync", CallbackData: fmt.Sprintf("sync_%d", todoID)},
			}}}
		}
	}
	if res.SuggestedAlternative != "" {
		parts = append(parts, fmt.Sprintf("\n💡 **Alternative**: %s", res.SuggestedAlternative))
	}
	if res.ClarificationNeeded != "" {
		parts = append(parts, fmt.Sprintf("\n❓ **Clarification**: %s", res.ClarificationNeeded))
		data := s.sessions.Get(chatID)
		data.State = session.AwaitingClarification
		data.PendingTodoID = todoID
		parts = append(parts, fmt.Sprintf("\n_(I'm waiting for your reply regarding Task %d)_", todoID))
	}

	s.edit(ctx, chatID, statusID, strings.Join(parts, "\n"), markup)
}

var unscheduledKeywords = []string{
	"unscheduled", "no date", "backlog", "no deadline",
	"add to backlog", "put in backlog", "skip scheduling",
	"don't schedule", "no due date",
}

// isUnscheduledIntent matches only short replies so "tomorrow, but no
// deadline for the rest" still goes through re-triage.
func isUnscheduledIntent(reply string) bool {
	reply = strings.ToLower(strings.TrimSpace(reply))
	if len(strings.Fields(reply)) > 5 {
		return false
	}
	for _, kw := range unscheduledKeywords {
		if strings.Contains(reply, kw) {
			return true
		}
	}

	return false
}

// processClarification resolves a pending clarification: an explicit
// unscheduled intent moves the task to the backlog, anything else re-triages
// with the reply folded in.
func (s *Service) processClarification(ctx context.Context, chatID, todoID int64, reply string) {
	s.store.LogAudit(ctx, "clarification", fmt.Sprintf("Replying to %d: %s", todoID, reply))
	data := s.sessions.Get(chatID)
	data.State = session.StateNone
	data.PendingTodoID = 0

	if isUnscheduledIntent(reply) {
		if err := s.store.MarkUnscheduled(ctx, todoID); err != nil {
			s.logger.Error("Failed to mark task unscheduled", zap.Int64("taskID", todoID), zap.Error(err))
		} else {
			if s.writer != nil {
				if task, err := s.store.GetTask(ctx, todoID); err == nil {
					if err := s.writer.AppendTask(task); err != nil {
						s.logger.Error("Vault append failed", zap.Error(err))
					}
				}
			}
			s.send(ctx, chatID, fmt.Sprintf(
				"📋 **Task %d moved to Unscheduled backlog.**\nUse `/schedule %d <date> [time]` when you're ready to schedule it.",
				todoID, todoID), mainMenuKeyboard())

			return
		}
	}

	task, err := s.store.GetTask(ctx, todoID)
	if err != nil {
		s.logger.Error("Clarification failed", zap.Int64("taskID", todoID), zap.Error(err))
		s.send(ctx, chatID, "❌ Error updating task.", mainMenuKeyboard())

		return
	}
	combined := fmt.Sprintf("Original task: %s\nClarification info: %s", task.RawInput, reply)
	s.send(ctx, chatID, fmt.Sprintf("🔄 Refining Task %d with your reply...", todoID), nil)
	s.processTask(ctx, chatID, combined, todoID)
}

// markTaskComplete completes a task and regenerates the next instance when a
// recurrence rule is attached.
func (s *Service) markTaskComplete(ctx context.Context, chatID, taskID int64, customTime string) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %d not found.", taskID), inlineMenu())

		return
	}

	completedAt := customTime
	if completedAt == "" {
		completedAt = s.now().Format("2006-01-02 15:04:05")
	}
	if err := s.store.CompleteTask(ctx, taskID, completedAt); err != nil {
		s.logger.Error("Failed to complete task", zap.Int64("taskID", taskID), zap.Error(err))
		s.send(ctx, chatID, "❌ Error completing task.", inlineMenu())

		return
	}

	data := s.sessions.Get(chatID)
	data.State = session.StateNone
	data.PendingDoneID = 0

	s.send(ctx, chatID,
		fmt.Sprintf("🎉 **Task Completed!**\n\n✅ %s\n⏰ Completed: %s", task.Task, completedAt),
		inlineMenu())
	s.store.LogAudit(ctx, "task_completed", fmt.Sprintf("Task %d marked complete", taskID))

	next, err := s.store.RegenerateIfRecurring(ctx, taskID)
	if err != nil {
		s.logger.Error("Recurring regeneration failed", zap.Int64("taskID", taskID), zap.Error(err))

		return
	}
	if next != nil {
		dueDisplay := next.DueDate.String
		if d, err := time.Parse("2006-01-02", next.DueDate.String); err == nil {
			dueDisplay = d.Format("Mon, Jan 02")
		}
		s.send(ctx, chatID, fmt.Sprintf(
			"🔄 **Recurring Task Regenerated!**\n📅 Next due: %s\n🆔 New ID: %d",
			dueDisplay, next.ID), nil)
	}
}

// searchAndPick shows pending tasks matching a keyword as pick buttons.
func (s *Service) searchAndPick(ctx context.Context, chatID int64, keyword, prefix, title string) {
	tasks, err := s.store.SearchPending(ctx, keyword, 5)
	if err != nil {
		s.logger.Error("Task search failed", zap.String("keyword", keyword), zap.Error(err))
	}
	if len(tasks) == 0 {
		s.send(ctx, chatID, fmt.Sprintf("❌ No pending tasks found matching '%s'.", keyword), inlineMenu())

		return
	}
	s.send(ctx, chatID, title, pickTaskKeyboard(prefix, tasks))
}
