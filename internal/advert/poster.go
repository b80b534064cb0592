// Package advert posts the home server advertisement and one advertisement
// per active partner.
package advert

import (
	"context"
	"fmt"

	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"github.com/smallbiznis/partnerbot/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	targetOwn     = "own"
	targetPartner = "partner"
)

type Report struct {
	OwnPosted bool `json:"own_posted"`
	Posted    int  `json:"posted"`
	Failed    int  `json:"failed"`
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Policy  *config.PolicyHolder
	Clock   clock.Clock
	Repo    partnerdomain.Repository
	Sink    notification.Sink
	Metrics *metrics.Metrics `optional:"true"`
}

type Poster struct {
	db      *gorm.DB
	log     *zap.Logger
	policy  *config.PolicyHolder
	clock   clock.Clock
	repo    partnerdomain.Repository
	sink    notification.Sink
	metrics *metrics.Metrics

	home     config.HomeServerConfig
	channels config.ChannelConfig
}

func New(p Params) *Poster {
	return &Poster{
		db:       p.DB,
		log:      p.Log.Named("advert.poster"),
		policy:   p.Policy,
		clock:    p.Clock,
		repo:     p.Repo,
		sink:     p.Sink,
		metrics:  p.Metrics,
		home:     p.Config.Home,
		channels: p.Config.Discord.Channels,
	}
}

// Post announces the own advertisement, then every active partner in store
// order. Individual failures are counted; only a store failure or
// cancellation ends the run early.
func (p *Poster) Post(ctx context.Context) (Report, error) {
	var report Report

	if p.channels.OwnAd != "" {
		err := p.sink.Announce(ctx, p.channels.OwnAd, p.ownAd())
		p.metrics.RecordAdvert(ctx, targetOwn, err)
		if err != nil {
			report.Failed++
			p.log.Warn("advert.own.failed", zap.Error(err))
		} else {
			report.OwnPosted = true
		}
	} else {
		p.log.Warn("advert.own.skipped", zap.String("reason", "OWN_AD_CHANNEL not set"))
	}

	if p.channels.PartnerAd == "" {
		p.log.Warn("advert.partners.skipped", zap.String("reason", "PARTNER_AD_CHANNEL not set"))
		return report, nil
	}

	partners, err := p.repo.FindByStatus(ctx, p.db, partnerdomain.StatusActive)
	if err != nil {
		return report, fmt.Errorf("load active partners: %w", err)
	}

	delay := p.policy.Get().PartnerDelay
	for i, partner := range partners {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := p.sink.Announce(ctx, p.channels.PartnerAd, partnerAd(partner))
		p.metrics.RecordAdvert(ctx, targetPartner, err)
		if err != nil {
			report.Failed++
			p.log.Warn("advert.partner.failed", zap.String("partner", partner.Name), zap.Error(err))
		} else {
			report.Posted++
		}
		if i < len(partners)-1 {
			if err := p.clock.Sleep(ctx, delay); err != nil {
				return report, err
			}
		}
	}

	p.log.Info("advert.completed",
		zap.Bool("own_posted", report.OwnPosted),
		zap.Int("posted", report.Posted),
		zap.Int("failed", report.Failed),
	)
	if p.channels.Log != "" {
		summary := notification.Message{
			Title: "Advertisements posted",
			Body:  fmt.Sprintf("Own ad and %d partner ads posted.", report.Posted),
			Level: notification.LevelSuccess,
		}
		if err := p.sink.Announce(ctx, p.channels.Log, summary); err != nil {
			p.log.Warn("advert.log.failed", zap.Error(err))
		}
	}
	return report, nil
}

func (p *Poster) ownAd() notification.Message {
	return notification.Message{
		Title: p.home.Name,
		Body:  p.home.Description,
		Level: notification.LevelInfo,
		Fields: []notification.Field{
			{Name: "Join", Value: p.home.Invite},
		},
	}
}

func partnerAd(partner partnerdomain.Partner) notification.Message {
	return notification.Message{
		Title: "Partner: " + partner.Name,
		Body:  partner.Description,
		Level: notification.LevelInfo,
		Fields: []notification.Field{
			{Name: "Join", Value: partner.InviteReference, Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", partner.MemberCount), Inline: true},
		},
	}
}
