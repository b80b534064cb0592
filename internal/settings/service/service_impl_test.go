package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/settings/domain"
	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) domain.Service {
	return New(Params{
		DB:    dbtest.Open(t, &domain.Settings{}),
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestGetDefaultsToClosed(t *testing.T) {
	svc := newService(t)

	got, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, got.ApplicationsOpen)
	assert.Equal(t, domain.GlobalKey, got.Key)
}

func TestToggleApplicationsFlips(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	first, err := svc.ToggleApplications(ctx)
	require.NoError(t, err)
	assert.True(t, first.ApplicationsOpen)

	second, err := svc.ToggleApplications(ctx)
	require.NoError(t, err)
	assert.False(t, second.ApplicationsOpen)

	stored, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, stored.ApplicationsOpen)
}

func TestSetApplicationsOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.SetApplicationsOpen(ctx, true)
	require.NoError(t, err)
	_, err = svc.SetApplicationsOpen(ctx, true)
	require.NoError(t, err)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, got.ApplicationsOpen)
}
