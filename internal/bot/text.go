package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/session"
	"github.com/kairosbot/kairos/internal/store"
)

// onText dispatches free text in priority order: a pending check-in reply
// first, then keyboard shortcuts, then whatever conversation state is armed,
// and finally a gentle hint.
func (s *Service) onText(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	data := s.sessions.Get(chatID)

	if data.State == session.StateNone {
		checkInID, err := s.checkins.PendingCheckIn(ctx)
		switch {
		case err == nil:
			s.handleActivityReply(ctx, chatID, checkInID, text)

			return
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Error("Failed to look up pending check-in", zap.Error(err))
		}
	}

	switch text {
	case shortcutDone:
		s.doneIntro(ctx, chatID)

		return
	case shortcutStart:
		first := ""
		if msg.From != nil {
			first = msg.From.FirstName
		}
		s.startFlow(ctx, chatID, first)

		return
	case shortcutUnscheduled:
		s.listUnscheduled(ctx, chatID, mainMenuKeyboard())

		return
	case shortcutRefresh:
		data.State = session.StateNone
		s.refreshFlow(ctx, chatID)

		return
	case shortcutStats:
		data.State = session.StateNone
		s.statsFlow(ctx, chatID)

		return
	}

	switch data.State {
	case session.AwaitingAddTask:
		data.State = session.StateNone
		s.processTask(ctx, chatID, text, 0)

	case session.AwaitingDoneID:
		data.State = session.StateNone
		task, ok := s.lookupByIDText(ctx, text)
		if !ok {
			s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %s not found.", text), inlineMenu())

			return
		}
		s.askCompletionTime(ctx, chatID, task)

	case session.AwaitingDoneSearch:
		data.State = session.StateNone
		s.searchAndPick(ctx, chatID, text, "done_task_", fmt.Sprintf("🔍 **Search Results for '%s':**", text))

	case session.AwaitingEditID:
		task, ok := s.lookupByIDText(ctx, text)
		if !ok {
			data.State = session.StateNone
			s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %s not found.", text), mainMenuKeyboard())

			return
		}
		data.PendingTodoID = task.ID
		data.State = session.AwaitingEditInstruction
		s.send(ctx, chatID, fmt.Sprintf(
			"✏️ **Editing Task %d:** %s\n\nTell me your edits (e.g., 'Change priority to HIGH', 'due friday')",
			task.ID, task.Task), nil)

	case session.AwaitingEditSearch:
		data.State = session.StateNone
		s.searchAndPick(ctx, chatID, text, "edit_task_", "🔍 **Select Task to Edit:**")

	case session.AwaitingEditInstruction:
		data.State = session.StateNone
		if data.PendingTodoID == 0 {
			s.send(ctx, chatID, "❌ Error: Lost task ID.", mainMenuKeyboard())

			return
		}
		s.applyEdit(ctx, chatID, data.PendingTodoID, text)

	case session.AwaitingCustomCompleteTime:
		data.State = session.StateNone
		if data.PendingDoneID == 0 {
			s.send(ctx, chatID, "❌ Session expired. Please start again.", inlineMenu())

			return
		}
		s.markTaskComplete(ctx, chatID, data.PendingDoneID, text)

	case session.AwaitingQuery:
		data.State = session.StateNone
		s.runQuery(ctx, chatID, text)

	case session.AwaitingSchedule:
		data.State = session.StateNone
		parts := strings.SplitN(text, " ", 2)
		if len(parts) < 2 {
			s.send(ctx, chatID, "❌ Please provide: `<task_id> <date>`\nExample: `15 Friday 3pm`", nil)

			return
		}
		s.scheduleFlow(ctx, chatID, parts[0], parts[1])

	case session.AwaitingClarification:
		s.processClarification(ctx, chatID, data.PendingTodoID, text)

	default:
		if len(strings.Fields(text)) > 3 {
			s.send(ctx, chatID, "💡 It looks like you want to add a task. Tap **➕ Add Task** or type `/add`", mainMenuKeyboard())
		} else {
			s.send(ctx, chatID, "I didn't quite get that. Use the menu button (/) or tap a button below.", mainMenuKeyboard())
		}
	}
}

func (s *Service) lookupByIDText(ctx context.Context, text string) (*store.Task, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return nil, false
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, false
	}

	return task, true
}

// handleActivityReply treats free text as the answer to the waiting check-in
// and reports the analysis verdict.
func (s *Service) handleActivityReply(ctx context.Context, chatID, checkInID int64, text string) {
	statusID := s.sendStatus(ctx, chatID, "🔍 Analyzing your activity...")

	analysis, err := s.analyzer.Analyze(ctx, text, checkInID)
	if err != nil {
		s.logger.Error("Activity analysis failed", zap.Int64("checkInID", checkInID), zap.Error(err))
		s.edit(ctx, chatID, statusID, "✅ Activity logged. Analysis pending.", nil)

		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **Activity Logged**\n\n", productivityEmoji(analysis.ProductivityType))
	fmt.Fprintf(&b, "**Summary:** %s\n", analysis.ActivitySummary)
	fmt.Fprintf(&b, "**Type:** %s\n", titleCase(analysis.ProductivityType))
	fmt.Fprintf(&b, "**Alignment Score:** %d/10\n", analysis.AlignmentScore)
	fmt.Fprintf(&b, "**Category:** %s\n\n", analysis.Category)
	fmt.Fprintf(&b, "💬 %s", analysis.Feedback)
	if analysis.MatchedTodoID != nil {
		fmt.Fprintf(&b, "\n\n✓ Matched to Task ID: %d", *analysis.MatchedTodoID)
	}

	s.edit(ctx, chatID, statusID, b.String(), nil)
	s.store.LogAudit(ctx, "activity_logged", fmt.Sprintf("Check-in %d: %s", checkInID, truncate(text, 50)))
}

func productivityEmoji(t string) string {
	switch t {
	case store.ActivityAligned:
		return "✅"
	case store.ActivityBeneficial:
		return "💡"
	case store.ActivityWasted:
		return "⚠️"
	case store.ActivitySleeping:
		return "😴"
	default:
		return "📝"
	}
}
