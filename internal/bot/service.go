// Package bot implements the Telegram conversation surface: commands, the
// inline menus, callback buttons and the free-text state machine.
package bot

import (
	"context"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/activity"
	"github.com/kairosbot/kairos/internal/checkin"
	"github.com/kairosbot/kairos/internal/patterns"
	"github.com/kairosbot/kairos/internal/session"
	"github.com/kairosbot/kairos/internal/store"
	"github.com/kairosbot/kairos/internal/triage"
	"github.com/kairosbot/kairos/internal/vault"
)

// API is the slice of the Telegram client the service calls. *tgbot.Bot
// satisfies it; tests substitute a fake.
type API interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *tgbot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	SetMyCommands(ctx context.Context, params *tgbot.SetMyCommandsParams) (bool, error)
}

// ServiceParams holds dependencies for NewService.
type ServiceParams struct {
	fx.In
	API       API
	Store     *store.Store
	Sessions  *session.Store
	Engine    *triage.Engine
	Analyzer  *activity.Analyzer
	Reporter  *activity.Reporter
	CheckIns  *checkin.Manager
	Scheduler *checkin.Scheduler
	Writer    *vault.Writer
	Contexts  *vault.ContextManager
	Patterns  *patterns.Manager
	Logger    *zap.Logger
}

// Service routes every Telegram update to the right engine. Writer may be
// nil when no vault path is configured; sync steps are skipped then.
type Service struct {
	api       API
	store     *store.Store
	sessions  *session.Store
	engine    *triage.Engine
	analyzer  *activity.Analyzer
	reporter  *activity.Reporter
	checkins  *checkin.Manager
	scheduler *checkin.Scheduler
	writer    *vault.Writer
	contexts  *vault.ContextManager
	patterns  *patterns.Manager
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the conversation service.
func NewService(p ServiceParams) *Service {
	return &Service{
		api:       p.API,
		store:     p.Store,
		sessions:  p.Sessions,
		engine:    p.Engine,
		analyzer:  p.Analyzer,
		reporter:  p.Reporter,
		checkins:  p.CheckIns,
		scheduler: p.Scheduler,
		writer:    p.Writer,
		contexts:  p.Contexts,
		patterns:  p.Patterns,
		logger:    p.Logger.Named("bot"),
		now:       time.Now,
	}
}

// RegisterHandlers attaches every command, callback and text handler to the
// client. Command prefixes are disjoint, so match order does not matter.
func RegisterHandlers(b *tgbot.Bot, s *Service) {
	for pattern, fn := range map[string]tgbot.HandlerFunc{
		"/start":           s.onStart,
		"/help":            s.onHelp,
		"/add":             s.onAdd,
		"/edit":            s.onEdit,
		"/query":           s.onQuery,
		"/done":            s.onDone,
		"/unscheduled":     s.onUnscheduled,
		"/schedule":        s.onSchedule,
		"/stats":           s.onStats,
		"/refresh_context": s.onRefreshContext,
	} {
		b.RegisterHandler(tgbot.HandlerTypeMessageText, pattern, tgbot.MatchTypePrefix, fn)
	}

	b.RegisterHandlerMatchFunc(func(u *models.Update) bool {
		return u.CallbackQuery != nil
	}, s.onCallback)
	b.RegisterHandlerMatchFunc(func(u *models.Update) bool {
		return u.Message != nil && u.Message.Text != "" && !strings.HasPrefix(u.Message.Text, "/")
	}, s.onText)
	b.RegisterHandlerMatchFunc(func(u *models.Update) bool {
		return u.Message != nil && (u.Message.Voice != nil || len(u.Message.Photo) > 0)
	}, s.onMedia)
}

// send pushes a markdown message. Send failures are logged, not surfaced; a
// dropped reply must not wedge the conversation flow.
func (s *Service) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := s.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
	if err != nil {
		s.logger.Error("Failed to send message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

// sendStatus pushes a progress message and returns its ID so the final
// result can replace it in place.
func (s *Service) sendStatus(ctx context.Context, chatID int64, text string) int {
	msg, err := s.api.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		s.logger.Error("Failed to send status message", zap.Int64("chatID", chatID), zap.Error(err))

		return 0
	}

	return msg.ID
}

// edit rewrites a previously sent status message, falling back to a fresh
// message when there is nothing to edit.
func (s *Service) edit(ctx context.Context, chatID int64, messageID int, text string, markup models.ReplyMarkup) {
	if messageID == 0 {
		s.send(ctx, chatID, text, markup)

		return
	}
	_, err := s.api.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdownV1,
		ReplyMarkup: markup,
	})
	if err != nil {
		s.logger.Error("Failed to edit message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

// fullSync mirrors the pending and recently completed tasks into the vault.
func (s *Service) fullSync(ctx context.Context) error {
	if s.writer == nil {
		return vault.ErrVaultNotConfigured
	}
	active, err := s.store.ListPending(ctx)
	if err != nil {
		return err
	}
	completed, err := s.store.ListRecentlyCompleted(ctx, 10)
	if err != nil {
		return err
	}

	return s.writer.SyncAll(active, completed)
}

func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}

	return s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	_, args, _ := strings.Cut(text, " ")

	return strings.TrimSpace(args)
}
