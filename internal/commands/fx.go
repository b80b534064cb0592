package commands

import "go.uber.org/fx"

var Module = fx.Module("commands",
	fx.Provide(New),
)
