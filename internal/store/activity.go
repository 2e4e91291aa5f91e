package store

import (
	"context"
	"fmt"
	"time"
)

// InsertActivityLog stores an analyzed hourly activity.
func (s *Store) InsertActivityLog(ctx context.Context, log *ActivityLog) (int64, error) {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	if _, err := s.db.NewInsert().Model(log).
		Column("timestamp", "user_response", "activity_summary", "productivity_type",
			"alignment_score", "matched_todo_id", "category", "reasoning", "check_in_id").
		Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert activity log: %w", err)
	}
	return log.ID, nil
}

// CountActivitiesByType aggregates activity logs per productivity type over
// a window.
func (s *Store) CountActivitiesByType(ctx context.Context, from, to time.Time) (map[string]int, error) {
	var rows []struct {
		ProductivityType string `bun:"productivity_type"`
		Count            int    `bun:"count"`
	}
	err := s.db.NewSelect().Model((*ActivityLog)(nil)).
		ColumnExpr("productivity_type, COUNT(*) AS count").
		Where("timestamp >= ?", from).
		Where("timestamp <= ?", to).
		GroupExpr("productivity_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.ProductivityType] = r.Count
	}
	return out, nil
}

// AvgAlignmentScore averages non-sleeping alignment scores over a window.
// The pointer is nil when no qualifying rows exist.
func (s *Store) AvgAlignmentScore(ctx context.Context, from, to time.Time) (*float64, error) {
	var avg *float64
	err := s.db.NewSelect().Model((*ActivityLog)(nil)).
		ColumnExpr("AVG(alignment_score)").
		Where("timestamp >= ?", from).
		Where("timestamp <= ?", to).
		Where("productivity_type != ?", ActivitySleeping).
		Scan(ctx, &avg)
	if err != nil {
		return nil, err
	}
	return avg, nil
}

// CategoryBreakdown counts non-sleeping activities per category over a
// window, most frequent first.
func (s *Store) CategoryBreakdown(ctx context.Context, from, to time.Time) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := s.db.NewSelect().Model((*ActivityLog)(nil)).
		ColumnExpr("category, COUNT(*) AS count").
		Where("timestamp >= ?", from).
		Where("timestamp <= ?", to).
		Where("category IS NOT NULL AND category != ''").
		Where("productivity_type != ?", ActivitySleeping).
		GroupExpr("category").
		OrderExpr("COUNT(*) DESC").
		Scan(ctx, &rows)
	return rows, err
}

// CategoryCount pairs an activity category with its hour count.
type CategoryCount struct {
	Category string `bun:"category"`
	Count    int    `bun:"count"`
}
