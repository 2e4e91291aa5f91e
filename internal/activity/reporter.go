package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/store"
)

// Stats aggregates check-in and activity data over one reporting window
// (a day for /stats, a Monday-Sunday week for insights).
type Stats struct {
	TotalCheckIns        int
	RespondedCheckIns    int
	MissedCheckIns       int
	SleepingCheckIns     int
	AlignedActivities    int
	BeneficialActivities int
	WastedActivities     int
	AvgAlignmentScore    *float64
	ProductivityRatio    *float64
}

// Reporter renders productivity reports and persists daily aggregates.
type Reporter struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReporter creates a reporter over the store.
func NewReporter(st *store.Store, logger *zap.Logger) *Reporter {
	return &Reporter{store: st, logger: logger.Named("reporter")}
}

// DailyStats computes the aggregates for the calendar day of target.
func (r *Reporter) DailyStats(ctx context.Context, target time.Time) (*Stats, error) {
	from, to := dayBounds(target)

	return r.statsBetween(ctx, from, to)
}

func (r *Reporter) statsBetween(ctx context.Context, from, to time.Time) (*Stats, error) {
	statusCounts, err := r.store.CountCheckInsByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("counting check-ins: %w", err)
	}
	activityCounts, err := r.store.CountActivitiesByType(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("counting activities: %w", err)
	}
	avgScore, err := r.store.AvgAlignmentScore(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("averaging alignment: %w", err)
	}

	stats := &Stats{
		RespondedCheckIns:    statusCounts[store.CheckInCompleted],
		MissedCheckIns:       statusCounts[store.CheckInMissed],
		SleepingCheckIns:     statusCounts[store.CheckInSleeping],
		AlignedActivities:    activityCounts[store.ActivityAligned],
		BeneficialActivities: activityCounts[store.ActivityBeneficial],
		WastedActivities:     activityCounts[store.ActivityWasted],
		AvgAlignmentScore:    avgScore,
	}
	for _, n := range statusCounts {
		stats.TotalCheckIns += n
	}
	if stats.RespondedCheckIns > 0 {
		ratio := float64(stats.AlignedActivities+stats.BeneficialActivities) / float64(stats.RespondedCheckIns) * 100
		stats.ProductivityRatio = &ratio
	}

	return stats, nil
}

// FormatDailyReport renders the Telegram markdown report for one day.
func (r *Reporter) FormatDailyReport(ctx context.Context, target time.Time) string {
	stats, err := r.DailyStats(ctx, target)
	if err != nil {
		r.logger.Error("Failed to generate daily report", zap.Error(err))

		return "❌ Failed to generate report. Please try again."
	}

	var b strings.Builder
	b.WriteString("📊 **Daily Productivity Report**\n")
	fmt.Fprintf(&b, "Date: %s\n\n", target.Format("2006-01-02"))

	if stats.TotalCheckIns == 0 {
		b.WriteString("No check-in data available for this day.\n")
		b.WriteString("Check-ins will start automatically at the next hour.")

		return b.String()
	}

	responseRate := float64(stats.RespondedCheckIns) / float64(stats.TotalCheckIns) * 100
	fmt.Fprintf(&b, "**Check-ins:** %d/%d responded", stats.RespondedCheckIns, stats.TotalCheckIns)
	if stats.SleepingCheckIns > 0 {
		fmt.Fprintf(&b, " (%d sleeping)", stats.SleepingCheckIns)
	}
	fmt.Fprintf(&b, " (%.0f%%)\n\n", responseRate)

	if stats.RespondedCheckIns > 0 {
		b.WriteString("**Activity Breakdown:**\n")
		fmt.Fprintf(&b, "✅ Aligned (on todo list): %d hours\n", stats.AlignedActivities)
		fmt.Fprintf(&b, "💡 Beneficial (goal-aligned): %d hours\n", stats.BeneficialActivities)
		fmt.Fprintf(&b, "⚠️ Wasted time: %d hours\n\n", stats.WastedActivities)

		if stats.AvgAlignmentScore != nil {
			fmt.Fprintf(&b, "**Alignment Score:** %.1f/10\n", *stats.AvgAlignmentScore)
		}
		if stats.ProductivityRatio != nil {
			fmt.Fprintf(&b, "**Productivity Ratio:** %.0f%%\n\n", *stats.ProductivityRatio)
		}

		from, to := dayBounds(target)
		if breakdown, err := r.store.CategoryBreakdown(ctx, from, to); err == nil && len(breakdown) > 0 {
			b.WriteString("**Time by Category:**\n")
			for _, c := range breakdown {
				plural := "s"
				if c.Count == 1 {
					plural = ""
				}
				fmt.Fprintf(&b, "- %s: %d hour%s\n", c.Category, c.Count, plural)
			}
		}
	}

	if stats.MissedCheckIns > 0 {
		fmt.Fprintf(&b, "\n⚠️ **Missed Check-ins:** %d\n", stats.MissedCheckIns)
	}

	return b.String()
}

// SaveDailyMetrics upserts the aggregate row for one day.
func (r *Reporter) SaveDailyMetrics(ctx context.Context, target time.Time) error {
	stats, err := r.DailyStats(ctx, target)
	if err != nil {
		return err
	}

	from, to := dayBounds(target)
	m := &store.ProductivityMetrics{
		PeriodStart:          from,
		PeriodEnd:            to,
		PeriodType:           "daily",
		TotalCheckIns:        stats.TotalCheckIns,
		RespondedCheckIns:    stats.RespondedCheckIns,
		MissedCheckIns:       stats.MissedCheckIns,
		SleepingCheckIns:     stats.SleepingCheckIns,
		AlignedActivities:    stats.AlignedActivities,
		BeneficialActivities: stats.BeneficialActivities,
		WastedActivities:     stats.WastedActivities,
	}
	if stats.AvgAlignmentScore != nil {
		m.AvgAlignmentScore = sql.NullFloat64{Float64: *stats.AvgAlignmentScore, Valid: true}
	}
	if stats.ProductivityRatio != nil {
		m.ProductivityRatio = sql.NullFloat64{Float64: *stats.ProductivityRatio, Valid: true}
	}

	if err := r.store.UpsertProductivityMetrics(ctx, m); err != nil {
		return fmt.Errorf("saving daily metrics: %w", err)
	}

	r.logger.Info("Daily metrics saved", zap.String("date", target.Format("2006-01-02")))

	return nil
}

// SaveWeeklyInsight renders and stores the insight row for the week containing
// target. Re-running within the same week refreshes the existing row, so this
// can piggyback on every /stats call.
func (r *Reporter) SaveWeeklyInsight(ctx context.Context, target time.Time) error {
	from, to := weekBounds(target)
	stats, err := r.statsBetween(ctx, from, to)
	if err != nil {
		return err
	}

	metricsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding weekly metrics: %w", err)
	}

	in := &store.Insight{
		WeekStart:      from.Format("2006-01-02"),
		WeekEnd:        to.Format("2006-01-02"),
		ReportMarkdown: formatWeeklyReport(stats, from, to),
		MetricsJSON:    string(metricsJSON),
	}
	if err := r.store.SaveInsight(ctx, in); err != nil {
		return fmt.Errorf("saving weekly insight: %w", err)
	}

	r.logger.Info("Weekly insight saved", zap.String("weekStart", in.WeekStart))

	return nil
}

func formatWeeklyReport(stats *Stats, from, to time.Time) string {
	var b strings.Builder
	b.WriteString("📈 **Weekly Insight**\n")
	fmt.Fprintf(&b, "Week: %s — %s\n\n", from.Format("2006-01-02"), to.Format("2006-01-02"))

	if stats.TotalCheckIns == 0 {
		b.WriteString("No check-in data recorded this week.")

		return b.String()
	}

	fmt.Fprintf(&b, "**Check-ins:** %d/%d responded\n", stats.RespondedCheckIns, stats.TotalCheckIns)
	fmt.Fprintf(&b, "✅ Aligned: %d | 💡 Beneficial: %d | ⚠️ Wasted: %d\n",
		stats.AlignedActivities, stats.BeneficialActivities, stats.WastedActivities)
	if stats.AvgAlignmentScore != nil {
		fmt.Fprintf(&b, "**Avg Alignment:** %.1f/10\n", *stats.AvgAlignmentScore)
	}
	if stats.ProductivityRatio != nil {
		fmt.Fprintf(&b, "**Productivity Ratio:** %.0f%%\n", *stats.ProductivityRatio)
	}

	return b.String()
}

func dayBounds(target time.Time) (time.Time, time.Time) {
	from := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())

	return from, from.Add(24*time.Hour - time.Nanosecond)
}

// weekBounds returns the Monday 00:00 start and Sunday end of the week
// containing target.
func weekBounds(target time.Time) (time.Time, time.Time) {
	day := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, target.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	from := day.AddDate(0, 0, -offset)

	return from, from.AddDate(0, 0, 7).Add(-time.Nanosecond)
}
