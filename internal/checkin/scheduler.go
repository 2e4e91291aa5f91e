package checkin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
	"github.com/kairosbot/kairos/internal/store"
)

// BusyChecker reports whether the chat is mid-conversation, in which case
// check-ins are deferred.
type BusyChecker interface {
	Busy(chatID int64) bool
}

// Scheduler drives hourly check-ins and the half-hourly stale sweep. It does
// nothing until a chat is configured by /start.
type Scheduler struct {
	manager *Manager
	store   *store.Store
	busy    BusyChecker
	delays  []time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewScheduler wires the scheduler but does not start it.
func NewScheduler(manager *Manager, st *store.Store, busy BusyChecker, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		manager: manager,
		store:   st,
		busy:    busy,
		delays:  cfg.CheckIn.RetryDelays,
		logger:  logger.Named("scheduler"),
	}
}

// Start registers the cron jobs if a chat is configured. It is safe to call
// repeatedly; /start calls it again after creating the user config.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return true
	}

	if _, err := s.store.ConfiguredChatID(ctx); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Info("⏳ Check-in scheduler waiting for user setup (/start)")
		} else {
			s.logger.Error("Failed to look up configured chat", zap.Error(err))
		}

		return false
	}

	c := cron.New()
	if _, err := c.AddFunc("0 * * * *", s.hourlyCheckIn); err != nil {
		s.logger.Error("Failed to schedule hourly check-in", zap.Error(err))

		return false
	}
	if _, err := c.AddFunc("*/30 * * * *", s.sweepStale); err != nil {
		s.logger.Error("Failed to schedule stale sweep", zap.Error(err))

		return false
	}
	c.Start()

	s.cron = c
	s.started = true
	s.logger.Info("✅ Check-in scheduler started")

	return true
}

// Stop halts the cron jobs. Pending retry timers fire but find no work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
		s.started = false
		s.logger.Info("Check-in scheduler stopped")
	}
}

func (s *Scheduler) hourlyCheckIn() {
	ctx := context.Background()
	if err := s.trySend(ctx, 1); err != nil {
		s.logger.Error("Hourly check-in failed", zap.Error(err))
	}
}

// trySend sends the check-in unless the user is sleeping or busy. A busy
// user gets up to three retries on the configured delays before the attempt
// is abandoned to the stale sweep.
func (s *Scheduler) trySend(ctx context.Context, attempt int) error {
	chatID, err := s.store.ConfiguredChatID(ctx)
	if err != nil {
		return err
	}

	sleeping, err := s.store.IsSleeping(ctx, chatID)
	if err != nil {
		return err
	}
	if sleeping {
		s.logger.Info("User is sleeping, skipping check-in")

		return nil
	}

	if s.busy.Busy(chatID) {
		if attempt > len(s.delays) {
			s.logger.Info("Max retries reached, leaving check-in to the stale sweep")

			return nil
		}
		delay := s.delays[attempt-1]
		s.logger.Info("User is busy, scheduling retry",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))
		time.AfterFunc(delay, func() {
			if err := s.trySend(context.Background(), attempt+1); err != nil {
				s.logger.Error("Check-in retry failed", zap.Error(err))
			}
		})

		return nil
	}

	_, err = s.manager.SendCheckIn(ctx, chatID)

	return err
}

func (s *Scheduler) sweepStale() {
	if _, err := s.manager.MarkStaleMissed(context.Background()); err != nil {
		s.logger.Error("Stale check-in sweep failed", zap.Error(err))
	}
}
