package settings

import (
	"github.com/smallbiznis/partnerbot/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(service.New),
)
