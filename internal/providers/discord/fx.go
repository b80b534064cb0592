package discord

import "go.uber.org/fx"

// Module provides the REST session, notification sink and invite directory.
var Module = fx.Module("discord",
	fx.Provide(NewSession),
	fx.Provide(NewSink),
	fx.Provide(NewDirectory),
)

// GatewayModule opens the websocket and serves slash commands.
var GatewayModule = fx.Module("discord.gateway",
	fx.Provide(NewGateway),
	fx.Invoke(func(*Gateway) {}),
)
