package checkin

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/store"
)

type fakeSender struct {
	mu     sync.Mutex
	params []*tgbot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)

	return &models.Message{}, nil
}

func (f *fakeSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.params)
}

type fakeBusy struct {
	mu   sync.Mutex
	busy bool
}

func (f *fakeBusy) Busy(int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.busy
}

func (f *fakeBusy) set(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = b
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.CheckIn.StaleAfter = 90 * time.Minute
	cfg.CheckIn.RetryDelays = []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}
	cfg.CheckIn.DefaultWakeTime = "08:00"

	return cfg
}

func newTestManager(t *testing.T) (*Manager, *store.Store, *fakeSender) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sender := &fakeSender{}

	return NewManager(sender, st, testConfig(), zap.NewNop()), st, sender
}

func TestSendCheckIn(t *testing.T) {
	m, _, sender := newTestManager(t)
	ctx := context.Background()

	id, err := m.SendCheckIn(ctx, 42)
	require.NoError(t, err)
	require.Positive(t, id)

	pending, err := m.PendingCheckIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, pending)

	require.Equal(t, 1, sender.sent())
	params := sender.params[0]
	assert.Equal(t, int64(42), params.ChatID)
	assert.Contains(t, params.Text, "Hourly Check-In")

	markup, ok := params.ReplyMarkup.(models.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "checkin_sleep", markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "checkin_wake", markup.InlineKeyboard[0][1].CallbackData)
}

func TestSleepWakeCycle(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)

	day := time.Date(2026, 8, 25, 0, 0, 0, 0, time.Local)

	// Sleep pressed at 01:00.
	m.now = func() time.Time { return day.Add(1 * time.Hour) }
	require.NoError(t, m.HandleSleep(ctx, 42))

	sleeping, err := st.IsSleeping(ctx, 42)
	require.NoError(t, err)
	assert.True(t, sleeping)

	// Two check-ins lapsed to missed while asleep: 03:00 and 09:00.
	for _, h := range []int{3, 9} {
		id, err := st.CreateSentCheckIn(ctx, day.Add(time.Duration(h)*time.Hour))
		require.NoError(t, err)
		_, err = st.DB().NewUpdate().Model((*store.CheckIn)(nil)).
			Set("status = ?", store.CheckInMissed).
			Where("id = ?", id).Exec(ctx)
		require.NoError(t, err)
	}

	// Wake pressed at 10:00. Backfill is bounded by the 08:00 default wake
	// time, so only the 09:00 check-in becomes sleeping.
	m.now = func() time.Time { return day.Add(10 * time.Hour) }
	hours, err := m.HandleWake(ctx, 42)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, hours, 0.01)

	sleeping, err = st.IsSleeping(ctx, 42)
	require.NoError(t, err)
	assert.False(t, sleeping)

	counts, err := st.CountCheckInsByStatus(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[store.CheckInSleeping])
	assert.Equal(t, 1, counts[store.CheckInMissed])
}

func TestHandleWakeWithoutSleepStart(t *testing.T) {
	m, st, _ := newTestManager(t)
	ctx := context.Background()

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)

	hours, err := m.HandleWake(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, hours)
}

func newTestScheduler(t *testing.T, busy BusyChecker) (*Scheduler, *store.Store, *fakeSender) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sender := &fakeSender{}
	cfg := testConfig()
	m := NewManager(sender, st, cfg, zap.NewNop())
	s := NewScheduler(m, st, busy, cfg, zap.NewNop())
	t.Cleanup(s.Stop)

	return s, st, sender
}

func TestSchedulerWaitsForSetup(t *testing.T) {
	s, st, _ := newTestScheduler(t, &fakeBusy{})
	ctx := context.Background()

	assert.False(t, s.Start(ctx))

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)

	assert.True(t, s.Start(ctx))
	// Idempotent once running.
	assert.True(t, s.Start(ctx))
}

func TestTrySendSkipsWhileSleeping(t *testing.T) {
	s, st, sender := newTestScheduler(t, &fakeBusy{})
	ctx := context.Background()

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, st.StartSleep(ctx, 42, time.Now()))

	require.NoError(t, s.trySend(ctx, 1))
	assert.Zero(t, sender.sent())
}

func TestTrySendRetriesWhileBusy(t *testing.T) {
	busy := &fakeBusy{busy: true}
	s, st, sender := newTestScheduler(t, busy)
	ctx := context.Background()

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)

	require.NoError(t, s.trySend(ctx, 1))
	assert.Zero(t, sender.sent())

	// The retry fires once the conversation ends.
	busy.set(false)
	assert.Eventually(t, func() bool { return sender.sent() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestTrySendGivesUpAfterMaxRetries(t *testing.T) {
	busy := &fakeBusy{busy: true}
	s, st, sender := newTestScheduler(t, busy)
	ctx := context.Background()

	_, err := st.EnsureUserConfig(ctx, 42)
	require.NoError(t, err)

	require.NoError(t, s.trySend(ctx, 3))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, sender.sent())
}
