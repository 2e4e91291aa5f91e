// Package checkin sends the hourly accountability check-ins and tracks
// sleep/wake state.
package checkin

import (
	"context"
	"fmt"
	"math"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/store"
)

// Sender is the slice of the Telegram client the manager needs.
type Sender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

const checkInMessage = "⏰ **Hourly Check-In**\n\n" +
	"What did you do in the last hour?\n\n" +
	"💬 Reply with what you worked on, and I'll analyze how it aligns with your goals."

// Manager creates check-in records, pushes the messages and handles the
// Sleep/Wake buttons.
type Manager struct {
	sender Sender
	store  *store.Store
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewManager wires the check-in manager.
func NewManager(sender Sender, st *store.Store, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		sender: sender,
		store:  st,
		cfg:    cfg,
		logger: logger.Named("checkin"),
		now:    time.Now,
	}
}

// SendCheckIn records and pushes one check-in with Sleep/Wake buttons.
func (m *Manager) SendCheckIn(ctx context.Context, chatID int64) (int64, error) {
	id, err := m.store.CreateSentCheckIn(ctx, m.now())
	if err != nil {
		return 0, err
	}

	_, err = m.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      checkInMessage,
		ParseMode: models.ParseModeMarkdownV1,
		ReplyMarkup: models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "😴 Sleep", CallbackData: "checkin_sleep"},
				{Text: "☀️ Wake", CallbackData: "checkin_wake"},
			}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("sending check-in %d: %w", id, err)
	}

	m.logger.Info("Check-in sent", zap.Int64("checkInID", id), zap.Int64("chatID", chatID))

	return id, nil
}

// PendingCheckIn returns the unanswered check-in a free-text reply should be
// matched against, or store.ErrNotFound.
func (m *Manager) PendingCheckIn(ctx context.Context) (int64, error) {
	return m.store.LatestSentCheckIn(ctx)
}

// HandleSleep puts the chat into sleep mode.
func (m *Manager) HandleSleep(ctx context.Context, chatID int64) error {
	now := m.now()
	if err := m.store.StartSleep(ctx, chatID, now); err != nil {
		return err
	}

	m.logger.Info("User entered sleep mode", zap.Int64("chatID", chatID), zap.Time("at", now))

	return nil
}

// HandleWake ends sleep mode, retroactively reclassifies the check-ins that
// fell into the sleep window and returns hours slept (rounded to one
// decimal). The window starts at the later of the recorded sleep start and
// today's default wake time, so an unpressed Sleep button from yesterday
// cannot swallow a whole working day.
func (m *Manager) HandleWake(ctx context.Context, chatID int64) (float64, error) {
	uc, err := m.store.GetUserConfig(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if !uc.SleepStartTime.Valid {
		m.logger.Warn("No sleep start time found", zap.Int64("chatID", chatID))

		return 0, nil
	}

	now := m.now()
	sleepStart := uc.SleepStartTime.Time

	wakeTime := uc.DefaultWakeTime
	if wakeTime == "" {
		wakeTime = m.cfg.CheckIn.DefaultWakeTime
	}
	parsed, err := time.Parse("15:04", wakeTime)
	if err != nil {
		parsed, _ = time.Parse("15:04", "08:00")
	}
	defaultWake := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, now.Location())

	retroStart := sleepStart
	if defaultWake.After(retroStart) {
		retroStart = defaultWake
	}

	if err := m.store.MarkSleepingBetween(ctx, retroStart, now); err != nil {
		return 0, err
	}
	if err := m.store.EndSleep(ctx, chatID, now); err != nil {
		return 0, err
	}

	hours := math.Round(now.Sub(sleepStart).Hours()*10) / 10
	m.logger.Info("User woke up", zap.Int64("chatID", chatID), zap.Float64("hoursSlept", hours))

	return hours, nil
}

// MarkStaleMissed sweeps sent check-ins older than the configured threshold.
func (m *Manager) MarkStaleMissed(ctx context.Context) (int64, error) {
	return m.store.MarkStaleCheckInsMissed(ctx, m.cfg.CheckIn.StaleAfter)
}
