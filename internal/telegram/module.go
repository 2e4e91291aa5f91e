// Package telegram provides the long-polling Telegram client.
package telegram

import (
	"context"
	"errors"

	tgbot "github.com/go-telegram/bot"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
)

// Module provides the Telegram bot client.
var Module = fx.Module("telegram",
	fx.Provide(NewBot),
)

// BotParams holds dependencies for NewBot.
type BotParams struct {
	fx.In
	Cfg    *config.Config
	LC     fx.Lifecycle
	Logger *zap.Logger
}

// NewBot creates the Telegram client and manages its long-polling loop.
// Polling runs on its own cancellable context so OnStop can end it without
// racing the fx shutdown deadline.
func NewBot(params BotParams) (*tgbot.Bot, error) {
	if params.Cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram bot token is not set in config")
	}

	b, err := tgbot.New(params.Cfg.Telegram.BotToken, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	params.LC.Append(fx.Hook{
		OnStart: func(context.Context) error {
			params.Logger.Info("Starting Telegram long polling...")
			go b.Start(pollCtx)

			return nil
		},
		OnStop: func(context.Context) error {
			params.Logger.Info("Stopping Telegram long polling...")
			cancel()

			return nil
		},
	})

	return b, nil
}
