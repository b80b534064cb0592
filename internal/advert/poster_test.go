package advert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	partnerrepo "github.com/smallbiznis/partnerbot/internal/partner/repository"
	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type announcement struct {
	channel string
	msg     notification.Message
}

type recordingSink struct {
	notification.Sink

	mu     sync.Mutex
	posts  []announcement
	failOn string
}

func (s *recordingSink) Announce(ctx context.Context, channelID string, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && strings.Contains(msg.Title, s.failOn) {
		return errors.New("missing access")
	}
	s.posts = append(s.posts, announcement{channel: channelID, msg: msg})
	return nil
}

func newPoster(t *testing.T, sink notification.Sink, clk clock.Clock, partners ...partnerdomain.Partner) *Poster {
	t.Helper()
	gormDB := dbtest.Open(t, &partnerdomain.Partner{})
	repo := partnerrepo.Provide()
	for i := range partners {
		require.NoError(t, repo.Insert(context.Background(), gormDB, &partners[i]))
	}

	cfg := config.Config{}
	cfg.Home = config.HomeServerConfig{Name: "Treffpunkt", Invite: "https://discord.gg/home", Description: "Welcome!"}
	cfg.Discord.Channels = config.ChannelConfig{OwnAd: "own", PartnerAd: "partners", Log: "log"}

	return New(Params{
		DB:     gormDB,
		Log:    zap.NewNop(),
		Config: cfg,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
		Clock:  clk,
		Repo:   repo,
		Sink:   sink,
	})
}

func partner(id int64, name string, status partnerdomain.Status) partnerdomain.Partner {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour)
	return partnerdomain.Partner{
		ID:              snowflake.ID(id),
		Name:            name,
		Slug:            strings.ToLower(name),
		InviteReference: "https://discord.gg/" + strings.ToLower(name),
		Description:     name + " description",
		Status:          status,
		MemberCount:     int(id) * 100,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestPostAdvertisesOwnServerThenActivePartners(t *testing.T) {
	sink := &recordingSink{}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	poster := newPoster(t, sink, clk,
		partner(1, "Alpha", partnerdomain.StatusActive),
		partner(2, "Bravo", partnerdomain.StatusPending),
		partner(3, "Charlie", partnerdomain.StatusActive),
	)

	report, err := poster.Post(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{OwnPosted: true, Posted: 2}, report)
	require.Len(t, sink.posts, 4)
	assert.Equal(t, "own", sink.posts[0].channel)
	assert.Equal(t, "Treffpunkt", sink.posts[0].msg.Title)
	assert.Equal(t, "https://discord.gg/home", sink.posts[0].msg.Fields[0].Value)
	assert.Equal(t, "Partner: Alpha", sink.posts[1].msg.Title)
	assert.Equal(t, "100", sink.posts[1].msg.Fields[1].Value)
	assert.Equal(t, "Partner: Charlie", sink.posts[2].msg.Title)
	assert.Equal(t, "log", sink.posts[3].channel)
	assert.Equal(t, "Own ad and 2 partner ads posted.", sink.posts[3].msg.Body)
	assert.Equal(t, []time.Duration{time.Second}, clk.Sleeps())
}

func TestPostCountsFailuresWithoutAborting(t *testing.T) {
	sink := &recordingSink{failOn: "Alpha"}
	poster := newPoster(t, sink, clock.NewFakeClock(time.Time{}),
		partner(1, "Alpha", partnerdomain.StatusActive),
		partner(2, "Bravo", partnerdomain.StatusActive),
	)

	report, err := poster.Post(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{OwnPosted: true, Posted: 1, Failed: 1}, report)
}

func TestPostStopsWhenCancelled(t *testing.T) {
	sink := &recordingSink{}
	poster := newPoster(t, sink, clock.NewFakeClock(time.Time{}), partner(1, "Alpha", partnerdomain.StatusActive))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poster.Post(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
