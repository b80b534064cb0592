package service

import (
	"context"
	"errors"
	"testing"

	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestReporterAnnouncesToLogChannel(t *testing.T) {
	sink := &mockSink{}
	sink.On("Announce", "log-1", "Partner audit").Return(errors.New("missing access")).Once()
	sink.On("Announce", "log-1", "Partner audit failed").Return(nil).Once()

	cfg := config.Config{}
	cfg.Discord.Channels.Log = "log-1"
	r := NewReporter(zap.NewNop(), sink, cfg)

	r.Report(context.Background(), auditdomain.NewSummary())
	r.ReportFailure(context.Background(), errors.New("store unreachable"))

	sink.AssertExpectations(t)
}

func TestReporterWithoutChannelOnlyLogs(t *testing.T) {
	sink := &mockSink{}
	r := NewReporter(zap.NewNop(), sink, config.Config{})

	r.Report(context.Background(), auditdomain.NewSummary())
	r.Report(context.Background(), nil)

	sink.AssertNotCalled(t, "Announce", "", "Partner audit")
	assert.Empty(t, sink.Calls)
}
