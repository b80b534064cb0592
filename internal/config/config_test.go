package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadParsesOwnersAndDurations(t *testing.T) {
	t.Setenv("OWNER_IDS", " 111, 222 ,,")
	t.Setenv("ADVERT_INTERVAL", "3h")
	t.Setenv("AUDIT_INTERVAL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, []string{"111", "222"}, cfg.Discord.OwnerIDs)
	assert.Equal(t, 3*time.Hour, cfg.Jobs.AdvertInterval)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.AuditInterval)
	assert.True(t, cfg.IsOwner("222"))
	assert.False(t, cfg.IsOwner("333"))
	assert.False(t, cfg.IsOwner(""))
}

func TestNewPolicyHolderDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewPolicyHolder(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, DefaultPolicy(), holder.Get())
}

func TestValidatePolicy(t *testing.T) {
	assert.NoError(t, validatePolicy(DefaultPolicy()))
	assert.Error(t, validatePolicy(Policy{MinMembers: 0, GracePeriod: time.Hour}))
	assert.Error(t, validatePolicy(Policy{MinMembers: 1, GracePeriod: 0}))
	assert.Error(t, validatePolicy(Policy{MinMembers: 1, GracePeriod: time.Hour, PartnerDelay: -time.Second}))
}
