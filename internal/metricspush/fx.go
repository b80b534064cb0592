package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/partnerbot/internal/config"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Provide(func(db *gorm.DB, repo partnerdomain.Repository) *PartnerGauges {
		return NewPartnerGauges(prometheus.DefaultRegisterer, db, repo)
	}),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, gauges *PartnerGauges, log *zap.Logger) {
	log = log.Named("metrics.push")
	interval := cfg.MetricsPush.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				tick(ctx, pusher, gauges, log)
				for {
					select {
					case <-ticker.C:
						tick(ctx, pusher, gauges, log)
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func tick(ctx context.Context, pusher Pusher, gauges *PartnerGauges, log *zap.Logger) {
	if err := gauges.Refresh(ctx); err != nil {
		log.Warn("partner gauges refresh failed", zap.Error(err))
	}
	if pusher == nil {
		return
	}
	if err := pusher.Push(ctx, prometheus.DefaultGatherer); err != nil {
		log.Error("metrics push failed", zap.Error(err))
	}
}
