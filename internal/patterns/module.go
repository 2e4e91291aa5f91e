package patterns

import "go.uber.org/fx"

// Module provides the pattern manager.
var Module = fx.Module("patterns",
	fx.Provide(NewManager),
)
