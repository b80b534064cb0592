package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerbot/internal/advert"
	"github.com/smallbiznis/partnerbot/internal/audit"
	"github.com/smallbiznis/partnerbot/internal/auth"
	"github.com/smallbiznis/partnerbot/internal/authorization"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/logger"
	"github.com/smallbiznis/partnerbot/internal/migration"
	"github.com/smallbiznis/partnerbot/internal/observability"
	"github.com/smallbiznis/partnerbot/internal/partner"
	"github.com/smallbiznis/partnerbot/internal/providers"
	"github.com/smallbiznis/partnerbot/internal/ratelimit"
	"github.com/smallbiznis/partnerbot/internal/server"
	"github.com/smallbiznis/partnerbot/internal/settings"
	"github.com/smallbiznis/partnerbot/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,
		// REST only; the gateway stays with the bot process.
		providers.Module,
		authorization.Module,

		settings.Module,
		partner.Module,
		audit.Module,
		advert.Module,

		auth.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
