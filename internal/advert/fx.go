package advert

import "go.uber.org/fx"

var Module = fx.Module("advert",
	fx.Provide(New),
)
