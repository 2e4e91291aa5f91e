package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSetsBusyTimeout(t *testing.T) {
	s := newTestStore(t)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(context.Background(), "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestInsertAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, &Task{
		Task:        "Submit application",
		RawInput:    "submit application by friday",
		Category:    "Career",
		Priority:    PriorityHigh,
		DueDate:     nullString("2026-08-28"),
		IsScheduled: true,
		Reasoning:   "Directly impacts the critical career deadline",
	})
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Submit application", got.Task)
	assert.Equal(t, TaskStatusPending, got.Status)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.True(t, got.IsScheduled)
	assert.Equal(t, "2026-08-28", got.DueDate.String)

	_, err = s.GetTask(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, &Task{Task: "Go for a run", Priority: PriorityMedium})
	require.NoError(t, err)

	require.NoError(t, s.CompleteTask(ctx, id, "2026-08-24 15:00:00"))

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, got.Status)
	assert.Equal(t, "2026-08-24 15:00:00", got.CompletedAt.String)

	assert.ErrorIs(t, s.CompleteTask(ctx, 9999, ""), ErrNotFound)
}

func TestUpdateTaskFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, &Task{Task: "Draft proposal", Category: "Personal", Priority: PriorityLow})
	require.NoError(t, err)

	edits := TaskEdits{Priority: PriorityHigh, Category: "Career", DueDate: "2026-09-01"}
	require.NoError(t, s.UpdateTaskFields(ctx, id, edits))

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft proposal", got.Task)
	assert.Equal(t, PriorityHigh, got.Priority)
	assert.Equal(t, "Career", got.Category)
	assert.Equal(t, "2026-09-01", got.DueDate.String)
	assert.True(t, got.IsScheduled)

	// No fields set is a no-op, not an error.
	require.NoError(t, s.UpdateTaskFields(ctx, id, TaskEdits{}))
	assert.ErrorIs(t, s.UpdateTaskFields(ctx, 9999, edits), ErrNotFound)
}

func TestScheduleAndUnschedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, &Task{Task: "Research AWS security", Priority: PriorityMedium})
	require.NoError(t, err)

	require.NoError(t, s.ScheduleTask(ctx, id, "2026-09-01", "14:00"))
	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsScheduled)
	assert.Equal(t, "2026-09-01", got.DueDate.String)
	assert.Equal(t, "14:00", got.DueTime.String)

	require.NoError(t, s.MarkUnscheduled(ctx, id))
	got, err = s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsScheduled)
	assert.False(t, got.DueDate.Valid)

	backlog, err := s.ListUnscheduled(ctx)
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, id, backlog[0].ID)
}

func TestSearchPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTask(ctx, &Task{Task: "Call dentist", Priority: PriorityLow})
	require.NoError(t, err)
	id2, err := s.InsertTask(ctx, &Task{Task: "Call recruiter", Priority: PriorityHigh})
	require.NoError(t, err)
	require.NoError(t, s.CompleteTask(ctx, id2, ""))

	rows, err := s.SearchPending(ctx, "call", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Call dentist", rows[0].Task)
}

func TestNextRecurrence(t *testing.T) {
	today := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		rule string
		want time.Time
	}{
		{"daily", today.AddDate(0, 0, 1)},
		{"every day", today.AddDate(0, 0, 1)},
		{"weekly", today.AddDate(0, 0, 7)},
		{"weekly:Mon,Wed", today.AddDate(0, 0, 7)},
		{"", time.Time{}},
		{"every full moon", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextRecurrence(tt.rule, today), "rule %q", tt.rule)
	}
}

func TestRegenerateIfRecurring(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTask(ctx, &Task{
		Task:       "Morning stretches",
		Category:   "Fitness",
		Priority:   PriorityMedium,
		Recurrence: nullString("daily"),
	})
	require.NoError(t, err)
	require.NoError(t, s.CompleteTask(ctx, id, ""))

	next, err := s.RegenerateIfRecurring(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotEqual(t, id, next.ID)
	assert.Equal(t, "Morning stretches", next.Task)
	assert.Equal(t, "daily", next.Recurrence.String)
	assert.True(t, next.DueDate.Valid)

	// Non-recurring tasks regenerate nothing.
	plain, err := s.InsertTask(ctx, &Task{Task: "One-off errand", Priority: PriorityLow})
	require.NoError(t, err)
	got, err := s.RegenerateIfRecurring(ctx, plain)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListActiveFocusFiltersPriorities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertTask(ctx, &Task{Task: "High task", Priority: PriorityHigh})
	require.NoError(t, err)
	_, err = s.InsertTask(ctx, &Task{Task: "Medium task", Priority: PriorityMedium})
	require.NoError(t, err)
	_, err = s.InsertTask(ctx, &Task{Task: "Low task", Priority: PriorityLow})
	require.NoError(t, err)

	rows, err := s.ListActiveFocus(ctx, 20)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.NotEqual(t, PriorityLow, r.Priority)
	}
}

func TestCheckInLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LatestSentCheckIn(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.CreateSentCheckIn(ctx, time.Now())
	require.NoError(t, err)

	latest, err := s.LatestSentCheckIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, latest)

	require.NoError(t, s.CompleteCheckIn(ctx, id, time.Now()))
	_, err = s.LatestSentCheckIn(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkStaleCheckInsMissed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	_, err := s.CreateSentCheckIn(ctx, old)
	require.NoError(t, err)
	fresh, err := s.CreateSentCheckIn(ctx, time.Now())
	require.NoError(t, err)

	n, err := s.MarkStaleCheckInsMissed(ctx, 90*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The fresh one is still waiting.
	latest, err := s.LatestSentCheckIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, latest)
}

func TestMarkSleepingBetweenBackfillsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Now().Add(-3 * time.Hour)
	id, err := s.CreateSentCheckIn(ctx, at)
	require.NoError(t, err)
	_, err = s.MarkStaleCheckInsMissed(ctx, 90*time.Minute)
	require.NoError(t, err)

	from := time.Now().Add(-8 * time.Hour)
	to := time.Now()
	require.NoError(t, s.MarkSleepingBetween(ctx, from, to))
	// Second wake press must not duplicate logs.
	require.NoError(t, s.MarkSleepingBetween(ctx, from, to))

	var logs []ActivityLog
	require.NoError(t, s.db.NewSelect().Model(&logs).Where("check_in_id = ?", id).Scan(ctx))
	require.Len(t, logs, 1)
	assert.Equal(t, ActivitySleeping, logs[0].ProductivityType)
	assert.Equal(t, "Sleeping", logs[0].ActivitySummary)

	counts, err := s.CountCheckInsByStatus(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[CheckInSleeping])
}

func TestUserConfigLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ConfiguredChatID(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := s.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)
	assert.False(t, created)

	chatID, err := s.ConfiguredChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), chatID)

	sleeping, err := s.IsSleeping(ctx, 42)
	require.NoError(t, err)
	assert.False(t, sleeping)

	now := time.Now()
	require.NoError(t, s.StartSleep(ctx, 42, now))
	sleeping, err = s.IsSleeping(ctx, 42)
	require.NoError(t, err)
	assert.True(t, sleeping)

	require.NoError(t, s.EndSleep(ctx, 42, now.Add(8*time.Hour)))
	sleeping, err = s.IsSleeping(ctx, 42)
	require.NoError(t, err)
	assert.False(t, sleeping)
}

func TestPatterns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePattern(ctx, "Override", "User always syncs grocery lists", 0.8))
	require.NoError(t, s.SavePattern(ctx, "Override", "Weak signal", 0.5))

	active, err := s.ActivePatterns(ctx, 0.7)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "User always syncs grocery lists", active[0])
}

func TestAuditTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.LogAudit(ctx, "manual_sync", "Force synced todo 7")
	s.LogAudit(ctx, "manual_sync", "Force synced todo 9")
	s.LogAudit(ctx, "command", "/start by user")

	details, err := s.RecentAuditDetails(ctx, "manual_sync", 20)
	require.NoError(t, err)
	assert.Len(t, details, 2)
}

func TestActivityAggregates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, l := range []*ActivityLog{
		{Timestamp: now, ProductivityType: ActivityAligned, AlignmentScore: 9, Category: "Career"},
		{Timestamp: now, ProductivityType: ActivityBeneficial, AlignmentScore: 7, Category: "Career"},
		{Timestamp: now, ProductivityType: ActivityWasted, AlignmentScore: 2, Category: "Entertainment"},
		{Timestamp: now, ProductivityType: ActivitySleeping, Category: ""},
	} {
		_, err := s.InsertActivityLog(ctx, l)
		require.NoError(t, err)
	}

	from, to := now.Add(-time.Hour), now.Add(time.Hour)

	counts, err := s.CountActivitiesByType(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[ActivityAligned])
	assert.Equal(t, 1, counts[ActivityBeneficial])
	assert.Equal(t, 1, counts[ActivityWasted])

	avg, err := s.AvgAlignmentScore(ctx, from, to)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 6.0, *avg, 0.01)

	breakdown, err := s.CategoryBreakdown(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Career", breakdown[0].Category)
	assert.Equal(t, 2, breakdown[0].Count)
}

func TestUpsertProductivityMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	m := &ProductivityMetrics{
		PeriodStart:       start,
		PeriodEnd:         start.Add(24 * time.Hour),
		PeriodType:        "daily",
		TotalCheckIns:     10,
		RespondedCheckIns: 8,
		AvgAlignmentScore: sql.NullFloat64{Float64: 7.5, Valid: true},
	}
	require.NoError(t, s.UpsertProductivityMetrics(ctx, m))

	m.RespondedCheckIns = 9
	require.NoError(t, s.UpsertProductivityMetrics(ctx, m))

	count, err := s.db.NewSelect().Model((*ProductivityMetrics)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var got ProductivityMetrics
	require.NoError(t, s.db.NewSelect().Model(&got).Limit(1).Scan(ctx))
	assert.Equal(t, 9, got.RespondedCheckIns)
}
