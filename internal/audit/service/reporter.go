package service

import (
	"context"

	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"go.uber.org/zap"
)

// Reporter writes audit results to the log and the configured log channel.
type Reporter struct {
	log       *zap.Logger
	sink      notification.Sink
	channelID string
}

func NewReporter(log *zap.Logger, sink notification.Sink, cfg config.Config) auditdomain.Reporter {
	return &Reporter{
		log:       log.Named("audit.reporter"),
		sink:      sink,
		channelID: cfg.Discord.Channels.Log,
	}
}

func (r *Reporter) Report(ctx context.Context, summary *auditdomain.Summary) {
	if summary == nil {
		return
	}
	r.log.Info("audit.report",
		zap.Int("valid", summary.ValidCount),
		zap.Int("warned", summary.WarnedCount),
		zap.Int("invalid", summary.InvalidCount),
		zap.Int("pending", summary.PendingCount),
		zap.Strings("results", summary.Lines()),
	)
	r.announce(ctx, notification.Message{
		Title: "Partner audit",
		Body:  summary.String(),
		Level: notification.LevelInfo,
	})
}

func (r *Reporter) ReportFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	r.log.Error("audit.report.failure", zap.Error(err))
	r.announce(ctx, notification.Message{
		Title: "Partner audit failed",
		Body:  err.Error(),
		Level: notification.LevelError,
	})
}

func (r *Reporter) announce(ctx context.Context, msg notification.Message) {
	if r.channelID == "" {
		return
	}
	if err := r.sink.Announce(ctx, r.channelID, msg); err != nil {
		r.log.Warn("audit.report.announce_failed", zap.Error(err))
	}
}
