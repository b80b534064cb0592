package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T, db *gorm.DB, owners ...string) Service {
	t.Helper()
	cfg := config.Config{}
	cfg.Discord.OwnerIDs = owners
	enforcer, err := NewEnforcer(db, cfg)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestOwnerMayManagePartners(t *testing.T) {
	svc := newService(t, dbtest.Open(t), "100")
	ctx := context.Background()

	for _, action := range []string{ActionCreate, ActionAccept, ActionDeny, ActionRemove, ActionExempt, ActionView} {
		assert.NoError(t, svc.Authorize(ctx, "100", ObjectPartner, action), action)
	}
	assert.NoError(t, svc.Authorize(ctx, "100", ObjectAudit, ActionRun))
	assert.NoError(t, svc.Authorize(ctx, "100", ObjectSettings, ActionManage))
	assert.NoError(t, svc.Authorize(ctx, "100", ObjectAdvert, ActionPost))
	assert.NoError(t, svc.Authorize(ctx, "100", ObjectDashboard, ActionView))
}

func TestStrangerLimitedToPublicActions(t *testing.T) {
	svc := newService(t, dbtest.Open(t), "100")
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "200", ObjectPartner, ActionCreate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "200", ObjectAudit, ActionRun), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "200", ObjectDashboard, ActionView), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, "200", ObjectApplication, ActionSubmit))
	assert.NoError(t, svc.Authorize(ctx, "200", ObjectDirectory, ActionView))
	assert.NoError(t, svc.Authorize(ctx, "200", ObjectRequirements, ActionView))
}

func TestOwnersFollowConfiguration(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	first := newService(t, db, "100", "101")
	require.NoError(t, first.Authorize(ctx, "101", ObjectAudit, ActionRun))

	second := newService(t, db, "100")
	assert.NoError(t, second.Authorize(ctx, "100", ObjectAudit, ActionRun))
	assert.ErrorIs(t, second.Authorize(ctx, "101", ObjectAudit, ActionRun), ErrForbidden)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	newService(t, db, "100")
	newService(t, db, "100")

	var count int64
	require.NoError(t, db.Table("casbin_rule").Where("ptype = ?", "p").Count(&count).Error)
	assert.EqualValues(t, 8, count)
	require.NoError(t, db.Table("casbin_rule").Where("ptype = ?", "g").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc, err := NewInMemory(zap.NewNop(), []string{"100"})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, " ", ObjectPartner, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "100", "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "100", ObjectPartner, ""), ErrInvalidAction)
	assert.NoError(t, svc.Authorize(ctx, "100", ObjectPartner, ActionView))
}
