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
	"github.com/kairosbot/kairos/internal/triage"
	"github.com/kairosbot/kairos/internal/vault"
)

const helpText = "🤖 **Kairos Bot Help**\n\n" +
	"➕ **Add Task**: Use `/add <task>` or the button below.\n" +
	"🔍 **Query Vault**: Use `/query <question>` to ask about your vault.\n" +
	"📋 **Unscheduled**: Use `/unscheduled` to list tasks needing a date.\n" +
	"📅 **Schedule**: Use `/schedule <id> <date> [time]` to schedule a task.\n" +
	"🔄 **Refresh**: Use `/refresh_context` to update my context from your vault.\n"

// Prompts for the two-step command flows.
const (
	promptAddTask = "➕ **What task would you like to add?**\n\n" +
		"_Send me the task description (e.g., 'Submit application by Friday')_"
	promptQuery = "🔍 **What would you like to know?**\n\n" +
		"_Ask me about your goals, recent tasks, or vault content._"
	promptSchedule = "📅 **Schedule a Task**\n\n" +
		"Send me the task ID and date:\n" +
		"`<task_id> <date> [time]`\n\n" +
		"Examples:\n• `30 Friday`\n• `30 tomorrow 3pm`\n• `30 2026-02-01 14:00`"
)

func (s *Service) onStart(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	first := ""
	if update.Message.From != nil {
		first = update.Message.From.FirstName
	}
	s.startFlow(ctx, update.Message.Chat.ID, first)
}

func (s *Service) onHelp(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/help by chat %d", chatID))
	s.send(ctx, chatID, helpText, mainMenuKeyboard())
}

func (s *Service) onAdd(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	args := commandArgs(update.Message.Text)
	if args == "" {
		s.sessions.SetState(chatID, session.AwaitingAddTask)
		s.send(ctx, chatID, promptAddTask, mainMenuKeyboard())

		return
	}
	s.processTask(ctx, chatID, args, 0)
}

func (s *Service) onQuery(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	args := commandArgs(update.Message.Text)
	if args == "" {
		s.sessions.SetState(chatID, session.AwaitingQuery)
		s.send(ctx, chatID, promptQuery, mainMenuKeyboard())

		return
	}
	s.runQuery(ctx, chatID, args)
}

func (s *Service) onDone(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	args := commandArgs(update.Message.Text)
	if args == "" {
		s.doneIntro(ctx, chatID)

		return
	}

	id, err := strconv.ParseInt(strings.Fields(args)[0], 10, 64)
	var task *store.Task
	if err == nil {
		task, err = s.store.GetTask(ctx, id)
	}
	if err != nil {
		s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %s not found.", args), inlineMenu())

		return
	}
	s.askCompletionTime(ctx, chatID, task)
}

func (s *Service) onEdit(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/edit by chat %d", chatID))

	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) == 0 {
		s.editIntro(ctx, chatID)

		return
	}
	if len(fields) < 2 {
		s.send(ctx, chatID, "Usage: `/edit <id> <instruction>` or `/edit` (interactive)", nil)

		return
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %s not found.", fields[0]), mainMenuKeyboard())

		return
	}
	s.applyEdit(ctx, chatID, id, strings.Join(fields[1:], " "))
}

func (s *Service) onUnscheduled(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/unscheduled by chat %d", chatID))
	s.listUnscheduled(ctx, chatID, mainMenuKeyboard())
}

func (s *Service) onSchedule(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/schedule by chat %d", chatID))

	fields := strings.Fields(commandArgs(update.Message.Text))
	if len(fields) < 2 {
		s.sessions.SetState(chatID, session.AwaitingSchedule)
		s.send(ctx, chatID, promptSchedule, mainMenuKeyboard())

		return
	}
	s.scheduleFlow(ctx, chatID, fields[0], strings.Join(fields[1:], " "))
}

func (s *Service) onStats(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/stats by chat %d", chatID))
	s.statsFlow(ctx, chatID)
}

func (s *Service) onRefreshContext(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	s.store.LogAudit(ctx, "command", fmt.Sprintf("/refresh_context by chat %d", chatID))
	s.refreshFlow(ctx, chatID)
}

// onMedia acknowledges voice and photo messages; they carry no task semantics
// yet but are recorded for the audit trail.
func (s *Service) onMedia(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	msg := update.Message
	kind := "photo"
	if msg.Voice != nil {
		kind = "voice"
	}
	s.store.LogAudit(ctx, "message_"+kind, fmt.Sprintf("Chat %d", msg.Chat.ID))
	s.send(ctx, msg.Chat.ID, fmt.Sprintf("📥 Received %s. Stored for later processing.", kind), mainMenuKeyboard())
}

// startFlow creates the user config on first contact, which also unblocks the
// check-in scheduler.
func (s *Service) startFlow(ctx context.Context, chatID int64, firstName string) {
	created, err := s.store.EnsureUserConfig(ctx, chatID)
	if err != nil {
		s.logger.Error("Failed to set up user config", zap.Int64("chatID", chatID), zap.Error(err))
	}
	if created {
		s.logger.Info("✅ Auto-configured check-ins", zap.Int64("chatID", chatID))
	}
	s.scheduler.Start(ctx)

	s.store.LogAudit(ctx, "command", fmt.Sprintf("/start by chat %d", chatID))

	if firstName == "" {
		firstName = "there"
	}
	welcome := fmt.Sprintf("Hello %s! I am Kairos, your Intelligent Life Sorter.\n\n"+
		"I'm here to help you stay aligned with your primary goals.\n\n"+
		"🆕 **Hourly Check-Ins Now Active!**\n"+
		"I'll ask you every hour what you did. This helps track alignment between planned tasks and actual work.\n\n"+
		"Use 😴 Sleep / ☀️ Wake buttons to control quiet periods.\n\n"+
		"Use the buttons below to interact!", firstName)
	s.send(ctx, chatID, welcome, inlineMenu())
	s.send(ctx, chatID, "⌨️ _Quick access buttons enabled below_", mainMenuKeyboard())
}

func (s *Service) doneIntro(ctx context.Context, chatID int64) {
	s.sessions.SetState(chatID, session.StateNone)
	s.send(ctx, chatID,
		"✅ **Mark Task as Complete**\n\nWhich task did you complete? Use buttons below or `/done <id>`",
		idOptionsKeyboard("done_enter_id", "done_search"))
}

func (s *Service) editIntro(ctx context.Context, chatID int64) {
	s.sessions.SetState(chatID, session.StateNone)
	s.send(ctx, chatID,
		"✏️ **Edit Task**\n\nWhich task do you want to edit?",
		idOptionsKeyboard("edit_enter_id", "edit_search"))
}

func (s *Service) askCompletionTime(ctx context.Context, chatID int64, task *store.Task) {
	s.sessions.Get(chatID).PendingDoneID = task.ID
	s.send(ctx, chatID,
		fmt.Sprintf("✅ Found: **%s**\n\n🕐 **When did you complete it?**", task.Task),
		completionTimeKeyboard(task.ID))
}

// statsFlow shows the daily report and persists the aggregates it was built
// from, keeping the metrics table and the current week's insight row fresh.
func (s *Service) statsFlow(ctx context.Context, chatID int64) {
	s.send(ctx, chatID, s.reporter.FormatDailyReport(ctx, s.now()), mainMenuKeyboard())

	if err := s.reporter.SaveDailyMetrics(ctx, s.now()); err != nil {
		s.logger.Error("Failed to save daily metrics", zap.Error(err))
	}
	if err := s.reporter.SaveWeeklyInsight(ctx, s.now()); err != nil {
		s.logger.Error("Failed to save weekly insight", zap.Error(err))
	}
}

// refreshFlow re-scans the vault with the pro model, then mirrors the task
// tables so both sides of the sync are fresh.
func (s *Service) refreshFlow(ctx context.Context, chatID int64) {
	s.send(ctx, chatID, "🔍 Starting deep vault scan & full sync... this may take a minute.", nil)

	_, refreshErr := s.contexts.Refresh(ctx)
	syncErr := s.fullSync(ctx)

	if refreshErr == nil && syncErr == nil {
		s.send(ctx, chatID, "✅ Context update & Obsidian Sync complete!", mainMenuKeyboard())

		return
	}
	s.logger.Warn("Context refresh incomplete",
		zap.NamedError("refresh", refreshErr),
		zap.NamedError("sync", syncErr))
	s.send(ctx, chatID, "⚠️ Context refresh failed or Sync failed.", mainMenuKeyboard())
}

func (s *Service) listUnscheduled(ctx context.Context, chatID int64, markup models.ReplyMarkup) {
	tasks, err := s.store.ListUnscheduled(ctx)
	if err != nil {
		s.logger.Error("Failed to list unscheduled tasks", zap.Error(err))
		s.send(ctx, chatID, "❌ Error fetching unscheduled tasks.", markup)

		return
	}
	if len(tasks) == 0 {
		s.send(ctx, chatID, "✅ No unscheduled tasks! All tasks have due dates.", markup)

		return
	}

	var b strings.Builder
	b.WriteString("📋 **Unscheduled Tasks (Backlog)**\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "**[ID: %d]** %s\n   └─ %s | %s priority\n\n", t.ID, t.Task, t.Category, t.Priority)
	}
	b.WriteString("_Use `/schedule <id> <date> [time]` to schedule a task._")
	s.send(ctx, chatID, b.String(), markup)
}

// scheduleFlow assigns a due date parsed from natural language to a backlog
// task.
func (s *Service) scheduleFlow(ctx context.Context, chatID int64, idStr, when string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.send(ctx, chatID, "❌ Invalid task ID. Usage: `/schedule <id> <date>`", nil)

		return
	}

	dueDate, dueTime, err := s.engine.ParseSchedule(ctx, when)
	if err != nil {
		s.logger.Warn("Schedule parse failed", zap.String("input", when), zap.Error(err))
		s.send(ctx, chatID, "❌ Couldn't parse that date. Try: `/schedule 30 2026-02-01`", nil)

		return
	}

	if err := s.store.ScheduleTask(ctx, id, dueDate, dueTime); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %d not found.", id), mainMenuKeyboard())
		} else {
			s.logger.Error("Failed to schedule task", zap.Int64("taskID", id), zap.Error(err))
			s.send(ctx, chatID, "❌ Error scheduling task.", mainMenuKeyboard())
		}

		return
	}

	s.send(ctx, chatID,
		fmt.Sprintf("✅ **Task %d scheduled!**\n📅 Due: %s", id, vault.FormatDueDisplay(dueDate, dueTime, true)),
		mainMenuKeyboard())
}

// runQuery answers a free-form question over the vault context and the most
// recent tasks.
func (s *Service) runQuery(ctx context.Context, chatID int64, question string) {
	s.store.LogAudit(ctx, "query", fmt.Sprintf("Chat %d: %s", chatID, question))
	statusID := s.sendStatus(ctx, chatID, "🔍 Searching personal knowledge base...")

	dbContext := "No recent tasks found in database."
	if tasks, err := s.store.ListRecent(ctx, 10); err == nil && len(tasks) > 0 {
		var b strings.Builder
		b.WriteString("RECENT TASKS FROM DATABASE:\n")
		for _, t := range tasks {
			due := t.DueDate.String
			if due == "" {
				due = "Unscheduled"
			}
			fmt.Fprintf(&b, "- %s (Priority: %s, Due: %s)\n", t.Task, t.Priority, due)
		}
		dbContext = strings.TrimRight(b.String(), "\n")
	}

	answer, err := s.engine.Answer(ctx, question, dbContext)
	if err != nil {
		s.logger.Error("Query failed", zap.Error(err))
		s.edit(ctx, chatID, statusID, "❌ Query failed. Please try again.", nil)

		return
	}
	s.edit(ctx, chatID, statusID, answer, nil)
}

// applyEdit first tries the structured edit parser; when the instruction
// yields concrete fields they are applied directly, otherwise the whole task
// is re-triaged with the instruction folded into the input.
func (s *Service) applyEdit(ctx context.Context, chatID, id int64, instruction string) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.send(ctx, chatID, fmt.Sprintf("❌ Task ID %d not found.", id), mainMenuKeyboard())

		return
	}

	fields := s.engine.ParseEditRequest(ctx, instruction)
	if edits := storeEdits(fields); edits != (store.TaskEdits{}) {
		if err := s.store.UpdateTaskFields(ctx, id, edits); err != nil {
			s.logger.Error("Edit failed", zap.Int64("taskID", id), zap.Error(err))
			s.send(ctx, chatID, "❌ Edit failed.", inlineMenu())

			return
		}

		var b strings.Builder
		fmt.Fprintf(&b, "✅ **Task %d Updated!**\n", id)
		b.WriteString(strings.Join(editLines(fields), "\n"))
		if s.writer != nil {
			if err := s.fullSync(ctx); err != nil {
				s.logger.Error("Post-edit sync failed", zap.Error(err))
			}
		}
		s.send(ctx, chatID, b.String(), inlineMenu())

		return
	}

	combined := fmt.Sprintf("Original task: %s\nEdit instruction: %s", task.RawInput, instruction)
	s.send(ctx, chatID, fmt.Sprintf("🔄 Applying edit to Task %d...", id), nil)
	s.processTask(ctx, chatID, combined, id)
}

func storeEdits(f triage.EditFields) store.TaskEdits {
	return store.TaskEdits{
		TaskName: f.TaskName,
		Category: f.Category,
		Priority: f.Priority,
		DueDate:  f.DueDate,
		DueTime:  f.DueTime,
	}
}

func editLines(f triage.EditFields) []string {
	var lines []string
	add := func(name, v string) {
		if v != "" {
			lines = append(lines, fmt.Sprintf("• %s: %s", name, v))
		}
	}
	add("task", f.TaskName)
	add("priority", f.Priority)
	add("category", f.Category)
	add("due date", f.DueDate)
	add("due time", f.DueTime)

	return lines
}
