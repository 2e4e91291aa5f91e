package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertProductivityMetrics inserts or refreshes the aggregate row for a
// period, keyed by (period_start, period_type).
func (s *Store) UpsertProductivityMetrics(ctx context.Context, m *ProductivityMetrics) error {
	var existing ProductivityMetrics
	err := s.db.NewSelect().Model(&existing).
		Where("period_start = ?", m.PeriodStart).
		Where("period_type = ?", m.PeriodType).
		Limit(1).
		Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.NewInsert().Model(m).
			Column("period_start", "period_end", "period_type",
				"total_check_ins", "responded_check_ins", "missed_check_ins", "sleeping_check_ins",
				"aligned_activities", "beneficial_activities", "wasted_activities",
				"avg_alignment_score", "productivity_ratio", "metrics_json").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert productivity metrics: %w", err)
		}
		return nil
	case err != nil:
		return err
	}

	_, err = s.db.NewUpdate().Model((*ProductivityMetrics)(nil)).
		Set("period_end = ?", m.PeriodEnd).
		Set("total_check_ins = ?", m.TotalCheckIns).
		Set("responded_check_ins = ?", m.RespondedCheckIns).
		Set("missed_check_ins = ?", m.MissedCheckIns).
		Set("sleeping_check_ins = ?", m.SleepingCheckIns).
		Set("aligned_activities = ?", m.AlignedActivities).
		Set("beneficial_activities = ?", m.BeneficialActivities).
		Set("wasted_activities = ?", m.WastedActivities).
		Set("avg_alignment_score = ?", m.AvgAlignmentScore).
		Set("productivity_ratio = ?", m.ProductivityRatio).
		Set("metrics_json = ?", m.MetricsJSON).
		Where("period_start = ?", m.PeriodStart).
		Where("period_type = ?", m.PeriodType).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update productivity metrics: %w", err)
	}
	return nil
}

// SaveInsight inserts or refreshes the generated weekly report, keyed by
// week_start so re-running a report within the same week rewrites one row.
func (s *Store) SaveInsight(ctx context.Context, in *Insight) error {
	existing, err := s.InsightForWeek(ctx, in.WeekStart)
	switch {
	case errors.Is(err, ErrNotFound):
		if _, err := s.db.NewInsert().Model(in).
			Column("week_start", "week_end", "report_markdown", "metrics_json").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to save insight: %w", err)
		}
		return nil
	case err != nil:
		return err
	}

	_, err = s.db.NewUpdate().Model((*Insight)(nil)).
		Set("week_end = ?", in.WeekEnd).
		Set("report_markdown = ?", in.ReportMarkdown).
		Set("metrics_json = ?", in.MetricsJSON).
		Where("id = ?", existing.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh insight for week %s: %w", in.WeekStart, err)
	}
	return nil
}

// InsightForWeek fetches the stored insight for the week starting weekStart
// (YYYY-MM-DD), or ErrNotFound.
func (s *Store) InsightForWeek(ctx context.Context, weekStart string) (*Insight, error) {
	var in Insight
	err := s.db.NewSelect().Model(&in).Where("week_start = ?", weekStart).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}
