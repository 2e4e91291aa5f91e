package gemini

import "go.uber.org/fx"

// Module provides Gemini-related dependencies.
var Module = fx.Module("gemini",
	fx.Provide(
		NewClient,
		func(c *Client) Generator { return c },
	),
)
