package notification

import (
	"context"

	"go.uber.org/zap"
)

// NoopSink records notifications in the log instead of delivering them.
type NoopSink struct {
	log *zap.Logger
}

func NewNoopSink(log *zap.Logger) *NoopSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopSink{log: log.Named("notification.noop")}
}

func (s *NoopSink) DirectMessage(ctx context.Context, userID string, kind Kind, payload Payload) error {
	s.log.Info("notification.dm",
		zap.String("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("partner", payload.PartnerName),
	)
	return nil
}

func (s *NoopSink) SetRole(ctx context.Context, userID, roleID string, present bool) error {
	s.log.Info("notification.role",
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
		zap.Bool("present", present),
	)
	return nil
}

func (s *NoopSink) Announce(ctx context.Context, channelID string, msg Message) error {
	s.log.Info("notification.announce",
		zap.String("channel_id", channelID),
		zap.String("title", msg.Title),
	)
	return nil
}
