package audit

import (
	"github.com/smallbiznis/partnerbot/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewReporter),
	fx.Provide(service.New),
)
