package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a lookup by ID matches nothing.
var ErrNotFound = errors.New("store: not found")

// InsertTask stores a freshly triaged task and returns its ID.
func (s *Store) InsertTask(ctx context.Context, t *Task) (int64, error) {
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if _, err := s.db.NewInsert().Model(t).
		Column("task", "raw_input", "category", "priority", "due_date", "due_time",
			"is_scheduled", "status", "reasoning", "recurrence").
		Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	return t.ID, nil
}

// UpdateTaskFromTriage rewrites the triage-owned fields of an existing task
// and resets it to Pending, as happens on edits and clarification replies.
func (s *Store) UpdateTaskFromTriage(ctx context.Context, id int64, t *Task) error {
	res, err := s.db.NewUpdate().Model((*Task)(nil)).
		Set("task = ?", t.Task).
		Set("raw_input = ?", t.RawInput).
		Set("category = ?", t.Category).
		Set("priority = ?", t.Priority).
		Set("due_date = ?", t.DueDate).
		Set("due_time = ?", t.DueTime).
		Set("is_scheduled = ?", t.IsScheduled).
		Set("reasoning = ?", t.Reasoning).
		Set("recurrence = ?", t.Recurrence).
		Set("status = ?", TaskStatusPending).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// TaskEdits holds the fields a partial edit may change. Empty fields are
// left untouched.
type TaskEdits struct {
	TaskName string
	Category string
	Priority string
	DueDate  string
	DueTime  string
}

// UpdateTaskFields applies a partial edit to a task. Setting a due date also
// marks the task scheduled.
func (s *Store) UpdateTaskFields(ctx context.Context, id int64, edits TaskEdits) error {
	if edits == (TaskEdits{}) {
		return nil
	}
	q := s.db.NewUpdate().Model((*Task)(nil)).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id)
	if edits.TaskName != "" {
		q = q.Set("task = ?", edits.TaskName)
	}
	if edits.Category != "" {
		q = q.Set("category = ?", edits.Category)
	}
	if edits.Priority != "" {
		q = q.Set("priority = ?", edits.Priority)
	}
	if edits.DueDate != "" {
		q = q.Set("due_date = ?", edits.DueDate).Set("is_scheduled = ?", true)
	}
	if edits.DueTime != "" {
		q = q.Set("due_time = ?", edits.DueTime)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to edit task %d: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// GetTask fetches a task by ID.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.NewSelect().Model(&t).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CompleteTask marks a task Completed. completedAt is stored verbatim so the
// user can supply a free-form time ("yesterday 3pm") without losing it.
func (s *Store) CompleteTask(ctx context.Context, id int64, completedAt string) error {
	if completedAt == "" {
		completedAt = time.Now().Format("2006-01-02 15:04:05")
	}
	res, err := s.db.NewUpdate().Model((*Task)(nil)).
		Set("status = ?", TaskStatusCompleted).
		Set("completed_at = ?", completedAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete task %d: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// ScheduleTask assigns a due date (and optional HH:MM time) to a task.
func (s *Store) ScheduleTask(ctx context.Context, id int64, dueDate, dueTime string) error {
	res, err := s.db.NewUpdate().Model((*Task)(nil)).
		Set("due_date = ?", dueDate).
		Set("due_time = ?", nullString(dueTime)).
		Set("is_scheduled = ?", true).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to schedule task %d: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// MarkUnscheduled moves a task to the unscheduled backlog, clearing any due
// date it had.
func (s *Store) MarkUnscheduled(ctx context.Context, id int64) error {
	res, err := s.db.NewUpdate().Model((*Task)(nil)).
		Set("is_scheduled = ?", false).
		Set("due_date = NULL").
		Set("due_time = NULL").
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark task %d unscheduled: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// SearchPending finds pending tasks whose name contains the keyword.
func (s *Store) SearchPending(ctx context.Context, keyword string, limit int) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		Where("status = ?", TaskStatusPending).
		Where("task LIKE ?", "%"+keyword+"%").
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return tasks, err
}

// ListPending returns all pending tasks, newest first.
func (s *Store) ListPending(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		Where("status = ?", TaskStatusPending).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return tasks, err
}

// ListUnscheduled returns the pending backlog without due dates.
func (s *Store) ListUnscheduled(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		Where("is_scheduled = ?", false).
		Where("status = ?", TaskStatusPending).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return tasks, err
}

// ListRecentlyCompleted returns the most recently completed tasks.
func (s *Store) ListRecentlyCompleted(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		Where("status = ?", TaskStatusCompleted).
		OrderExpr("completed_at DESC").
		Limit(limit).
		Scan(ctx)
	return tasks, err
}

// ListActiveFocus returns pending HIGH/MEDIUM tasks in the order activity
// analysis should try to match them.
func (s *Store) ListActiveFocus(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		Where("status = ?", TaskStatusPending).
		Where("priority IN (?, ?)", PriorityHigh, PriorityMedium).
		OrderExpr("priority DESC, due_date ASC").
		Limit(limit).
		Scan(ctx)
	return tasks, err
}

// ListRecent returns the latest tasks regardless of status, for query context.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Task, error) {
	var tasks []Task
	err := s.db.NewSelect().Model(&tasks).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return tasks, err
}

// NextRecurrence computes the next due date for a recurrence rule relative
// to today. The zero time means the rule is unsupported or empty.
func NextRecurrence(rule string, today time.Time) time.Time {
	rule = strings.ToLower(strings.TrimSpace(rule))
	switch {
	case rule == "":
		return time.Time{}
	case strings.Contains(rule, "daily"), strings.Contains(rule, "every day"):
		return today.AddDate(0, 0, 1)
	case strings.Contains(rule, "weekly"):
		return today.AddDate(0, 0, 7)
	default:
		return time.Time{}
	}
}

// RegenerateIfRecurring creates the next instance of a completed recurring
// task. Returns nil when the task has no supported recurrence rule.
func (s *Store) RegenerateIfRecurring(ctx context.Context, id int64) (*Task, error) {
	src, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !src.Recurrence.Valid || src.Recurrence.String == "" {
		return nil, nil
	}

	nextDue := NextRecurrence(src.Recurrence.String, time.Now())
	if nextDue.IsZero() {
		return nil, nil
	}

	next := &Task{
		Task:        src.Task,
		RawInput:    "Recurring: " + src.Task,
		Category:    src.Category,
		Priority:    src.Priority,
		DueDate:     nullString(nextDue.Format("2006-01-02")),
		IsScheduled: true,
		Status:      TaskStatusPending,
		Reasoning:   fmt.Sprintf("Regenerated from Task %d (%s)", id, strings.ToLower(src.Recurrence.String)),
		Recurrence:  src.Recurrence,
	}
	if _, err := s.InsertTask(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("Recurring task regenerated",
		zap.Int64("sourceID", id),
		zap.Int64("newID", next.ID),
		zap.String("nextDue", nextDue.Format("2006-01-02")),
	)
	return next, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func errNotFoundIfZero(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
