package activity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/store"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt

	return f.response, f.err
}

type staticContext string

func (s staticContext) ContextString() string { return string(s) }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestAnalyzer(t *testing.T, st *store.Store, gen *fakeGenerator) *Analyzer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Gemini.FlashModel = "gemini-3-flash-preview"

	return NewAnalyzer(gen, st, staticContext("Primary goal: career growth"), cfg, zap.NewNop())
}

func TestAnalyzePersistsVerdict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	todoID, err := st.InsertTask(ctx, &store.Task{Task: "Research AWS security", Category: "Career", Priority: store.PriorityHigh})
	require.NoError(t, err)
	checkInID, err := st.CreateSentCheckIn(ctx, time.Now())
	require.NoError(t, err)

	gen := &fakeGenerator{response: "```json\n" + `{
		"activity_summary": "Studied AWS IAM policies",
		"productivity_type": "aligned",
		"matched_todo_id": ` + "1" + `,
		"alignment_score": 9,
		"category": "Career",
		"reasoning": "Directly working on the listed research todo",
		"feedback": "Great focus this hour!"
	}` + "\n```"}

	a := newTestAnalyzer(t, st, gen)
	analysis, err := a.Analyze(ctx, "studied AWS IAM docs", checkInID)
	require.NoError(t, err)

	assert.Equal(t, "aligned", analysis.ProductivityType)
	require.NotNil(t, analysis.MatchedTodoID)
	assert.Equal(t, todoID, *analysis.MatchedTodoID)
	assert.Contains(t, gen.prompt, "Research AWS security")
	assert.Contains(t, gen.prompt, "Primary goal: career growth")
	assert.Contains(t, gen.prompt, `"studied AWS IAM docs"`)

	// Check-in is closed out.
	_, err = st.LatestSentCheckIn(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	counts, err := st.CountActivitiesByType(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[store.ActivityAligned])
}

func TestAnalyzeFallsBackOnBadJSON(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	checkInID, err := st.CreateSentCheckIn(ctx, time.Now())
	require.NoError(t, err)

	gen := &fakeGenerator{response: "I watched you scroll twitter, tut tut"}
	a := newTestAnalyzer(t, st, gen)

	analysis, err := a.Analyze(ctx, "scrolled twitter", checkInID)
	require.NoError(t, err)

	assert.Equal(t, store.ActivityBeneficial, analysis.ProductivityType)
	assert.Equal(t, 5, analysis.AlignmentScore)
	assert.Equal(t, "scrolled twitter", analysis.ActivitySummary)
	assert.Contains(t, analysis.Feedback, "trouble analyzing")
}

func TestAnalyzeFallsBackOnModelError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	checkInID, err := st.CreateSentCheckIn(ctx, time.Now())
	require.NoError(t, err)

	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	a := newTestAnalyzer(t, st, gen)

	analysis, err := a.Analyze(ctx, "went for a walk", checkInID)
	require.NoError(t, err)

	assert.Equal(t, store.ActivityBeneficial, analysis.ProductivityType)
	assert.Equal(t, "quota exceeded", analysis.Reasoning)
}

func seedDay(t *testing.T, st *store.Store, day time.Time) {
	t.Helper()
	ctx := context.Background()

	// Three answered check-ins, one missed, one slept through.
	for i, activity := range []struct {
		kind     string
		score    int
		category string
	}{
		{store.ActivityAligned, 9, "Career"},
		{store.ActivityBeneficial, 7, "Fitness"},
		{store.ActivityWasted, 2, "Entertainment"},
	} {
		at := day.Add(time.Duration(9+i) * time.Hour)
		id, err := st.CreateSentCheckIn(ctx, at)
		require.NoError(t, err)
		require.NoError(t, st.CompleteCheckIn(ctx, id, at.Add(5*time.Minute)))
		_, err = st.InsertActivityLog(ctx, &store.ActivityLog{
			Timestamp:        at,
			ProductivityType: activity.kind,
			AlignmentScore:   activity.score,
			Category:         activity.category,
			CheckInID:        id,
		})
		require.NoError(t, err)
	}

	missedID, err := st.CreateSentCheckIn(ctx, day.Add(13*time.Hour))
	require.NoError(t, err)
	_, err = st.DB().NewUpdate().Model((*store.CheckIn)(nil)).
		Set("status = ?", store.CheckInMissed).
		Where("id = ?", missedID).Exec(ctx)
	require.NoError(t, err)

	sleptID, err := st.CreateSentCheckIn(ctx, day.Add(6*time.Hour))
	require.NoError(t, err)
	_, err = st.DB().NewUpdate().Model((*store.CheckIn)(nil)).
		Set("status = ?", store.CheckInSleeping).
		Where("id = ?", sleptID).Exec(ctx)
	require.NoError(t, err)
}

func TestDailyStats(t *testing.T) {
	st := newTestStore(t)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	seedDay(t, st, day)

	r := NewReporter(st, zap.NewNop())
	stats, err := r.DailyStats(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalCheckIns)
	assert.Equal(t, 3, stats.RespondedCheckIns)
	assert.Equal(t, 1, stats.MissedCheckIns)
	assert.Equal(t, 1, stats.SleepingCheckIns)
	assert.Equal(t, 1, stats.AlignedActivities)
	assert.Equal(t, 1, stats.BeneficialActivities)
	assert.Equal(t, 1, stats.WastedActivities)
	require.NotNil(t, stats.AvgAlignmentScore)
	assert.InDelta(t, 6.0, *stats.AvgAlignmentScore, 0.01)
	require.NotNil(t, stats.ProductivityRatio)
	assert.InDelta(t, 66.7, *stats.ProductivityRatio, 0.1)
}

func TestFormatDailyReport(t *testing.T) {
	st := newTestStore(t)
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	seedDay(t, st, day)

	r := NewReporter(st, zap.NewNop())
	report := r.FormatDailyReport(context.Background(), day)

	assert.Contains(t, report, "Date: 2026-08-24")
	assert.Contains(t, report, "**Check-ins:** 3/5 responded (1 sleeping) (60%)")
	assert.Contains(t, report, "✅ Aligned (on todo list): 1 hours")
	assert.Contains(t, report, "**Alignment Score:** 6.0/10")
	assert.Contains(t, report, "**Productivity Ratio:** 67%")
	assert.Contains(t, report, "- Career: 1 hour\n")
	assert.Contains(t, report, "⚠️ **Missed Check-ins:** 1")
}

func TestFormatDailyReportEmptyDay(t *testing.T) {
	st := newTestStore(t)
	r := NewReporter(st, zap.NewNop())

	report := r.FormatDailyReport(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, report, "No check-in data available for this day.")
}

func TestSaveDailyMetricsUpserts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	seedDay(t, st, day)

	r := NewReporter(st, zap.NewNop())
	require.NoError(t, r.SaveDailyMetrics(ctx, day))
	require.NoError(t, r.SaveDailyMetrics(ctx, day))

	count, err := st.DB().NewSelect().Model((*store.ProductivityMetrics)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var m store.ProductivityMetrics
	require.NoError(t, st.DB().NewSelect().Model(&m).Limit(1).Scan(ctx))
	assert.Equal(t, 5, m.TotalCheckIns)
	assert.Equal(t, "daily", m.PeriodType)
	assert.True(t, m.AvgAlignmentScore.Valid)
}

func TestSaveWeeklyInsight(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC) // a Monday
	seedDay(t, st, day)

	r := NewReporter(st, zap.NewNop())
	// Saving from the Wednesday covers the whole Monday-Sunday week; the
	// second save refreshes the same row instead of appending.
	require.NoError(t, r.SaveWeeklyInsight(ctx, day.AddDate(0, 0, 2)))
	require.NoError(t, r.SaveWeeklyInsight(ctx, day.AddDate(0, 0, 2)))

	in, err := st.InsightForWeek(ctx, "2026-08-24")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30", in.WeekEnd)
	assert.Contains(t, in.ReportMarkdown, "📈 **Weekly Insight**")
	assert.Contains(t, in.ReportMarkdown, "**Check-ins:** 3/5 responded")
	assert.Contains(t, in.MetricsJSON, `"TotalCheckIns":5`)

	count, err := st.DB().NewSelect().Model((*store.Insight)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWeekBounds(t *testing.T) {
	// A Sunday belongs to the week that started the previous Monday.
	from, to := weekBounds(time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-08-24", from.Format("2006-01-02"))
	assert.Equal(t, "2026-08-30", to.Format("2006-01-02"))
}
