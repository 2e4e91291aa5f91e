package vault

import (
	"fmt"
	"strings"
	"time"
)

const unscheduledDisplay = "📅 Unscheduled"

// FormatDate converts YYYY-MM-DD into the vault's DD-MM-YYYY display form.
// Unparseable input passes through unchanged.
func FormatDate(dueDate string) string {
	d, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		return dueDate
	}

	return d.Format("02-01-2006")
}

// FormatTime12 converts HH:MM (24h) into h:MM AM/PM. Unparseable input
// passes through unchanged.
func FormatTime12(dueTime string) string {
	t, err := time.Parse("15:04", dueTime)
	if err != nil {
		return dueTime
	}

	return t.Format("3:04 PM")
}

// FormatDueDisplay renders a due date/time pair the way chat replies show it:
// "29-01-2026 @ 2:30 PM", or the unscheduled placeholder.
func FormatDueDisplay(dueDate, dueTime string, isScheduled bool) string {
	if !isScheduled || dueDate == "" {
		return unscheduledDisplay
	}

	display := FormatDate(dueDate)
	if dueTime != "" {
		return display + " @ " + FormatTime12(dueTime)
	}

	return display
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")

	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}

	return s
}

func cellID(id int64) string {
	if id == 0 {
		return "—"
	}

	return fmt.Sprintf("%d", id)
}
