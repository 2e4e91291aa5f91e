package session

import "go.uber.org/fx"

// Module provides the conversation session store.
var Module = fx.Module("session",
	fx.Provide(NewStore),
)
