package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CreateSentCheckIn records a check-in at the moment it is pushed to the chat.
func (s *Store) CreateSentCheckIn(ctx context.Context, at time.Time) (int64, error) {
	ci := &CheckIn{
		ScheduledTime: at,
		SentTime:      sql.NullTime{Time: at, Valid: true},
		Status:        CheckInSent,
	}
	if _, err := s.db.NewInsert().Model(ci).
		Column("scheduled_time", "sent_time", "status").
		Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to create check-in: %w", err)
	}
	return ci.ID, nil
}

// LatestSentCheckIn returns the ID of the most recent unanswered check-in,
// or ErrNotFound when none is waiting.
func (s *Store) LatestSentCheckIn(ctx context.Context) (int64, error) {
	var ci CheckIn
	err := s.db.NewSelect().Model(&ci).
		Where("status = ?", CheckInSent).
		OrderExpr("sent_time DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return ci.ID, nil
}

// CompleteCheckIn marks a check-in answered at the given time.
func (s *Store) CompleteCheckIn(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*CheckIn)(nil)).
		Set("status = ?", CheckInCompleted).
		Set("response_time = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete check-in %d: %w", id, err)
	}
	return errNotFoundIfZero(res)
}

// MarkStaleCheckInsMissed flags sent check-ins older than the threshold as
// missed and returns how many were updated.
func (s *Store) MarkStaleCheckInsMissed(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan)
	res, err := s.db.NewUpdate().Model((*CheckIn)(nil)).
		Set("status = ?", CheckInMissed).
		Where("status = ?", CheckInSent).
		Where("sent_time < ?", threshold).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale check-ins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Marked stale check-ins as missed", zap.Int64("count", n))
	}
	return n, nil
}

// MarkSleepingBetween reclassifies missed and pending check-ins inside the
// window as sleeping and backfills one "Sleeping" activity log per check-in.
// Backfill is idempotent so pressing Wake twice cannot duplicate logs.
func (s *Store) MarkSleepingBetween(ctx context.Context, from, to time.Time) error {
	if _, err := s.db.NewUpdate().Model((*CheckIn)(nil)).
		Set("status = ?", CheckInSleeping).
		Where("scheduled_time >= ?", from).
		Where("scheduled_time <= ?", to).
		Where("status IN (?, ?)", CheckInMissed, CheckInPending).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark sleeping check-ins: %w", err)
	}

	var sleeping []CheckIn
	if err := s.db.NewSelect().Model(&sleeping).
		Where("status = ?", CheckInSleeping).
		Where("scheduled_time >= ?", from).
		Where("scheduled_time <= ?", to).
		Scan(ctx); err != nil {
		return err
	}

	for _, ci := range sleeping {
		exists, err := s.db.NewSelect().Model((*ActivityLog)(nil)).
			Where("check_in_id = ?", ci.ID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		log := &ActivityLog{
			Timestamp:        ci.ScheduledTime,
			ActivitySummary:  "Sleeping",
			ProductivityType: ActivitySleeping,
			CheckInID:        ci.ID,
		}
		if _, err := s.db.NewInsert().Model(log).
			Column("timestamp", "activity_summary", "productivity_type", "check_in_id").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to backfill sleep log for check-in %d: %w", ci.ID, err)
		}
	}
	return nil
}

// CountCheckInsByStatus aggregates check-ins per status over a window.
func (s *Store) CountCheckInsByStatus(ctx context.Context, from, to time.Time) (map[string]int, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := s.db.NewSelect().Model((*CheckIn)(nil)).
		ColumnExpr("status, COUNT(*) AS count").
		Where("scheduled_time >= ?", from).
		Where("scheduled_time <= ?", to).
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
