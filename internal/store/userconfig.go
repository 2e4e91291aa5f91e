package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnsureUserConfig creates the config row for a chat on first contact.
// Returns true when a new row was created.
func (s *Store) EnsureUserConfig(ctx context.Context, chatID int64) (bool, error) {
	exists, err := s.db.NewSelect().Model((*UserConfig)(nil)).
		Where("chat_id = ?", chatID).
		Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	uc := &UserConfig{ChatID: chatID, CheckInsEnabled: true}
	if _, err := s.db.NewInsert().Model(uc).
		Column("chat_id", "check_ins_enabled").
		Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to create user config for chat %d: %w", chatID, err)
	}
	return true, nil
}

// ConfiguredChatID returns the chat with check-ins enabled, or ErrNotFound
// before the first /start.
func (s *Store) ConfiguredChatID(ctx context.Context) (int64, error) {
	var uc UserConfig
	err := s.db.NewSelect().Model(&uc).
		Where("check_ins_enabled = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return uc.ChatID, nil
}

// GetUserConfig fetches the config row for a chat.
func (s *Store) GetUserConfig(ctx context.Context, chatID int64) (*UserConfig, error) {
	var uc UserConfig
	err := s.db.NewSelect().Model(&uc).Where("chat_id = ?", chatID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

// IsSleeping reports whether the chat is in sleep mode. Unknown chats are
// treated as awake.
func (s *Store) IsSleeping(ctx context.Context, chatID int64) (bool, error) {
	uc, err := s.GetUserConfig(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return uc.IsSleeping, nil
}

// StartSleep records the start of a sleep period.
func (s *Store) StartSleep(ctx context.Context, chatID int64, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*UserConfig)(nil)).
		Set("is_sleeping = ?", true).
		Set("sleep_start_time = ?", at).
		Set("updated_at = ?", at).
		Where("chat_id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to start sleep for chat %d: %w", chatID, err)
	}
	return errNotFoundIfZero(res)
}

// EndSleep clears sleep mode and records the wake time.
func (s *Store) EndSleep(ctx context.Context, chatID int64, at time.Time) error {
	res, err := s.db.NewUpdate().Model((*UserConfig)(nil)).
		Set("is_sleeping = ?", false).
		Set("last_wake_time = ?", at).
		Set("updated_at = ?", at).
		Where("chat_id = ?", chatID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to end sleep for chat %d: %w", chatID, err)
	}
	return errNotFoundIfZero(res)
}
