package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/store"
)

const (
	todoHeader = "# 📋 TO-DO List\n\n" +
		"| ID | Task | Priority | Status | Category | Due Date | Due Time | Reasoning |\n" +
		"| :--- | :--- | :--- | :--- | :--- | :--- | :--- | :--- |\n"

	completedHeader = "# ✅ Recently Completed\n\n" +
		"| ID | Task | Completed At | Category | Priority |\n" +
		"| :--- | :--- | :--- | :--- | :--- |\n"
)

// Writer maintains the TO-DO List and Completed Tasks markdown tables inside
// the vault's "To Do" folder.
type Writer struct {
	todoPath      string
	completedPath string
	logger        *zap.Logger
}

// NewWriter validates the vault path and prepares the target folder.
func NewWriter(vaultPath string, logger *zap.Logger) (*Writer, error) {
	info, err := os.Stat(vaultPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("vault path does not exist: %s", vaultPath)
	}

	dir := filepath.Join(vaultPath, "To Do")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating To Do folder: %w", err)
	}

	return &Writer{
		todoPath:      filepath.Join(dir, "TO-DO List.md"),
		completedPath: filepath.Join(dir, "Completed Tasks.md"),
		logger:        logger.Named("vault"),
	}, nil
}

// AppendTask adds one task row to the TO-DO list, creating the file with its
// table header on first use.
func (w *Writer) AppendTask(task *store.Task) error {
	if _, err := os.Stat(w.todoPath); os.IsNotExist(err) {
		if err := os.WriteFile(w.todoPath, []byte(todoHeader), 0o644); err != nil {
			return fmt.Errorf("creating TO-DO list: %w", err)
		}
	}

	f, err := os.OpenFile(w.todoPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening TO-DO list: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(w.taskRow(task)); err != nil {
		return fmt.Errorf("appending task: %w", err)
	}

	return nil
}

// SyncAll rewrites both files from scratch so they mirror the database view:
// all active tasks, plus the recently completed slice.
func (w *Writer) SyncAll(active, completed []store.Task) error {
	var b strings.Builder
	b.WriteString(todoHeader)
	for i := range active {
		b.WriteString(w.taskRow(&active[i]))
	}
	if err := os.WriteFile(w.todoPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing TO-DO list: %w", err)
	}

	if len(completed) > 0 {
		var c strings.Builder
		c.WriteString(completedHeader)
		for i := range completed {
			t := &completed[i]
			fmt.Fprintf(&c, "| %s | %s | %s | %s | %s |\n",
				cellID(t.ID),
				escapeCell(t.Task),
				orDash(t.CompletedAt.String),
				orDash(t.Category),
				orDash(t.Priority),
			)
		}
		if err := os.WriteFile(w.completedPath, []byte(c.String()), 0o644); err != nil {
			return fmt.Errorf("writing completed tasks: %w", err)
		}
	}

	w.logger.Debug("Vault sync complete",
		zap.Int("active", len(active)),
		zap.Int("completed", len(completed)))

	return nil
}

func (w *Writer) taskRow(t *store.Task) string {
	name := escapeCell(t.Task)
	if t.Recurrence.String != "" {
		name += " 🔁"
	}

	dateDisplay := unscheduledDisplay
	timeDisplay := "—"
	if t.IsScheduled && t.DueDate.String != "" {
		dateDisplay = FormatDate(t.DueDate.String)
		if t.DueTime.String != "" {
			timeDisplay = FormatTime12(t.DueTime.String)
		}
	}

	return fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
		cellID(t.ID),
		name,
		orDash(t.Priority),
		orDash(t.Status),
		orDash(t.Category),
		dateDisplay,
		timeDisplay,
		escapeCell(t.Reasoning),
	)
}
