package checkin

import (
	tgbot "github.com/go-telegram/bot"
	"go.uber.org/fx"

	"github.com/kairosbot/kairos/internal/session"
)

// Module provides the check-in manager and scheduler.
var Module = fx.Module("checkin",
	fx.Provide(
		NewManager,
		NewScheduler,
		func(b *tgbot.Bot) Sender { return b },
		func(s *session.Store) BusyChecker { return s },
	),
)
