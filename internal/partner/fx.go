package partner

import (
	"github.com/smallbiznis/partnerbot/internal/partner/repository"
	"github.com/smallbiznis/partnerbot/internal/partner/service"
	"go.uber.org/fx"
)

var Module = fx.Module("partner.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
