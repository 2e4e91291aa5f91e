package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/session"
)

// onCallback handles every inline button press.
func (s *Service) onCallback(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if _, err := s.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		s.logger.Warn("Failed to answer callback query", zap.Error(err))
	}

	chatID := callbackChatID(q)
	data := q.Data
	sess := s.sessions.Get(chatID)

	switch {
	case data == "checkin_sleep":
		if err := s.checkins.HandleSleep(ctx, chatID); err != nil {
			s.logger.Error("Failed to enter sleep mode", zap.Error(err))

			return
		}
		s.send(ctx, chatID, "😴 **Sleep mode activated**\n\nI'll pause check-ins until you press ☀️ Wake.\nSleep well!", nil)

	case data == "checkin_wake":
		hours, err := s.checkins.HandleWake(ctx, chatID)
		if err != nil {
			s.logger.Error("Failed to end sleep mode", zap.Error(err))
			s.send(ctx, chatID, "❌ Error ending sleep mode.", nil)

			return
		}
		s.send(ctx, chatID, fmt.Sprintf(
			"☀️ **Welcome back!**\n\nYou slept for ~%.1f hours.\nCheck-ins resumed. Let's make today count!",
			hours), nil)

	case data == "menu_add":
		sess.State = session.AwaitingAddTask
		s.send(ctx, chatID, promptAddTask, nil)

	case data == "menu_query":
		sess.State = session.AwaitingQuery
		s.send(ctx, chatID, promptQuery, nil)

	case data == "menu_unscheduled":
		s.listUnscheduled(ctx, chatID, inlineMenu())

	case data == "menu_schedule":
		sess.State = session.AwaitingSchedule
		s.send(ctx, chatID, promptSchedule, nil)

	case data == "menu_done":
		s.doneIntro(ctx, chatID)

	case data == "menu_edit":
		s.editIntro(ctx, chatID)

	case data == "edit_enter_id":
		sess.State = session.AwaitingEditID
		s.send(ctx, chatID, "📝 **Enter Task ID to Edit**:\n\n_Send the number (e.g., 21)_", nil)

	case data == "edit_search":
		sess.State = session.AwaitingEditSearch
		s.send(ctx, chatID, "🔍 **Search Task to Edit**:\n\n_Type a keyword (e.g., 'call', 'apply')_", nil)

	case strings.HasPrefix(data, "edit_task_"):
		id, ok := trailingID(data, "edit_task_")
		if !ok {
			return
		}
		sess.PendingTodoID = id
		sess.State = session.AwaitingEditInstruction
		name := "Task"
		if task, err := s.store.GetTask(ctx, id); err == nil {
			name = task.Task
		}
		s.send(ctx, chatID, fmt.Sprintf(
			"✏️ **Editing: %s [ID: %d]**\n\nTell me your edits (e.g., 'Change priority to HIGH', 'due friday')",
			name, id), nil)

	case data == "done_enter_id":
		sess.State = session.AwaitingDoneID
		s.send(ctx, chatID, "📝 **Enter the Task ID** you completed:\n\n_Send the number (e.g., 21)_", nil)

	case data == "done_search":
		sess.State = session.AwaitingDoneSearch
		s.send(ctx, chatID, "🔍 **Search for your task**\n\n_Type a keyword to search (e.g., 'call', 'apply')_", nil)

	case strings.HasPrefix(data, "done_task_"):
		id, ok := trailingID(data, "done_task_")
		if !ok {
			return
		}
		sess.PendingDoneID = id
		s.send(ctx, chatID, fmt.Sprintf("🕐 **When did you complete Task ID: %d?**", id), completionTimeKeyboard(id))

	case strings.HasPrefix(data, "complete_now_"):
		id, ok := trailingID(data, "complete_now_")
		if !ok {
			return
		}
		s.markTaskComplete(ctx, chatID, id, "")

	case strings.HasPrefix(data, "complete_custom_"):
		id, ok := trailingID(data, "complete_custom_")
		if !ok {
			return
		}
		sess.State = session.AwaitingCustomCompleteTime
		sess.PendingDoneID = id
		s.send(ctx, chatID, "📝 **When was it completed?**\n\n_Send the date/time (e.g., 'yesterday 3pm', 'Jan 28 2pm')_", nil)

	case data == "menu_refresh":
		s.refreshFlow(ctx, chatID)

	case strings.HasPrefix(data, "sync_"):
		s.forceSync(ctx, chatID, data)

	default:
		s.logger.Warn("Unknown callback", zap.String("data", data))
	}
}

// forceSync overrides a pushback verdict: the vault tables are rewritten so
// the low-priority task lands there anyway, and the override feeds pattern
// learning.
func (s *Service) forceSync(ctx context.Context, chatID int64, data string) {
	id, ok := trailingID(data, "sync_")
	if !ok {
		return
	}

	if err := s.fullSync(ctx); err != nil {
		s.logger.Error("Force sync failed", zap.Int64("taskID", id), zap.Error(err))
		s.send(ctx, chatID, "❌ Sync failed.", inlineMenu())

		return
	}

	s.send(ctx, chatID, "🚀 **Force Synced!**", inlineMenu())
	s.store.LogAudit(ctx, "manual_sync", fmt.Sprintf("Force synced todo %d", id))
	if err := s.patterns.AnalyzeOverrides(ctx); err != nil {
		s.logger.Error("Override analysis failed", zap.Error(err))
	}
}

func callbackChatID(q *models.CallbackQuery) int64 {
	if q.Message.Message != nil {
		return q.Message.Message.Chat.ID
	}

	return q.From.ID
}

func trailingID(data, prefix string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}
