package activity

import (
	"go.uber.org/fx"

	"github.com/kairosbot/kairos/internal/vault"
)

// Module provides the activity analyzer and productivity reporter.
var Module = fx.Module("activity",
	fx.Provide(
		NewAnalyzer,
		NewReporter,
		func(m *vault.ContextManager) ContextSource { return m },
	),
)
