package triage

import "go.uber.org/fx"

// Module provides the triage engine.
var Module = fx.Module("triage",
	fx.Provide(NewEngine),
)
