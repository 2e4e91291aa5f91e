package bot

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/kairosbot/kairos/internal/store"
)

// Reply keyboard shortcuts shown under the input field.
const (
	shortcutStart       = "🏁 Start"
	shortcutUnscheduled = "📋 Unscheduled"
	shortcutDone        = "✅ Done"
	shortcutStats       = "📈 Stats"
	shortcutRefresh     = "🔄 Refresh Context"
)

// mainMenuKeyboard is the persistent reply keyboard at the bottom of the chat.
func mainMenuKeyboard() models.ReplyKeyboardMarkup {
	return models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: shortcutStart}, {Text: shortcutUnscheduled}},
			{{Text: shortcutDone}, {Text: shortcutStats}},
			{{Text: shortcutRefresh}},
		},
		ResizeKeyboard: true,
	}
}

// inlineMenu is the main action menu attached to bot replies.
func inlineMenu() models.InlineKeyboardMarkup {
	return models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "➕ Add Task", CallbackData: "menu_add"},
				{Text: "✏️ Edit Task", CallbackData: "menu_edit"},
				{Text: "✅ Done", CallbackData: "menu_done"},
			},
			{{Text: "🔍 Query Vault", CallbackData: "menu_query"}},
			{
				{Text: "📋 Unscheduled", CallbackData: "menu_unscheduled"},
				{Text: "📅 Schedule", CallbackData: "menu_schedule"},
			},
			{{Text: "🔄 Refresh", CallbackData: "menu_refresh"}},
		},
	}
}

// completionTimeKeyboard asks when a task was finished.
func completionTimeKeyboard(taskID int64) models.InlineKeyboardMarkup {
	return models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Completed Now", CallbackData: fmt.Sprintf("complete_now_%d", taskID)},
			{Text: "📝 Custom Time", CallbackData: fmt.Sprintf("complete_custom_%d", taskID)},
		}},
	}
}

// idOptionsKeyboard offers "enter an ID" vs "search" for the done and edit
// flows.
func idOptionsKeyboard(enterData, searchData string) models.InlineKeyboardMarkup {
	return models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "📝 Enter Task ID", CallbackData: enterData},
			{Text: "🔍 Search Tasks", CallbackData: searchData},
		}},
	}
}

// pickTaskKeyboard lists search hits as one button per task, with the task ID
// appended to the callback prefix.
func pickTaskKeyboard(prefix string, tasks []store.Task) models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(tasks))
	for _, t := range tasks {
		label := fmt.Sprintf("%s [ID: %d]", t.Task, t.ID)
		if runes := []rune(label); len(runes) > 40 {
			label = string(runes[:37]) + "..."
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("%s%d", prefix, t.ID),
		}})
	}

	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
