package providers

import (
	"github.com/smallbiznis/partnerbot/internal/providers/discord"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	discord.Module,
)
