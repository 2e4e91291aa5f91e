package bot

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/checkin"
)

// Module wires the conversation service into the Telegram client.
var Module = fx.Module("bot",
	fx.Provide(
		NewService,
		func(b *tgbot.Bot) API { return b },
	),
	fx.Invoke(registerBot),
)

type registerParams struct {
	fx.In
	Bot       *tgbot.Bot
	Service   *Service
	Scheduler *checkin.Scheduler
	LC        fx.Lifecycle
	Logger    *zap.Logger
}

func registerBot(p registerParams) {
	RegisterHandlers(p.Bot, p.Service)

	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := p.Bot.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{Commands: botCommands()}); err != nil {
				p.Logger.Warn("Failed to set bot commands menu", zap.Error(err))
			} else {
				p.Logger.Info("Bot commands menu set successfully")
			}
			// No-op until the first /start creates the user config.
			p.Scheduler.Start(ctx)

			return nil
		},
		OnStop: func(context.Context) error {
			p.Scheduler.Stop()

			return nil
		},
	})
}

func botCommands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: "Start the bot and show menu"},
		{Command: "add", Description: "Add a new task"},
		{Command: "edit", Description: "Edit task: /edit <id> <change>"},
		{Command: "query", Description: "Query your vault"},
		{Command: "done", Description: "Mark task complete: /done <id>"},
		{Command: "unscheduled", Description: "View unscheduled tasks"},
		{Command: "schedule", Description: "Schedule a task: /schedule <id> <date>"},
		{Command: "stats", Description: "View productivity statistics"},
		{Command: "help", Description: "Show help information"},
		{Command: "refresh_context", Description: "Refresh vault context"},
	}
}
