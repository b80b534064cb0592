package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy holds the partner requirements enforced by the audit.
type Policy struct {
	MinMembers   int           `mapstructure:"minMembers"`
	GracePeriod  time.Duration `mapstructure:"gracePeriod"`
	PartnerDelay time.Duration `mapstructure:"partnerDelay"`
	// InvalidatePendingOnFailedLookup lets the audit mark unreviewed applications
	// invalid when their invite no longer resolves.
	InvalidatePendingOnFailedLookup bool `mapstructure:"invalidatePendingOnFailedLookup"`
}

func DefaultPolicy() Policy {
	return Policy{
		MinMembers:   100,
		GracePeriod:  72 * time.Hour,
		PartnerDelay: time.Second,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/partnerbot")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTNERBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.minMembers", defaults.MinMembers)
	v.SetDefault("policy.gracePeriod", defaults.GracePeriod)
	v.SetDefault("policy.partnerDelay", defaults.PartnerDelay)
	v.SetDefault("policy.invalidatePendingOnFailedLookup", defaults.InvalidatePendingOnFailedLookup)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var p Policy
	if err := v.UnmarshalKey("policy", &p); err != nil {
		return nil, err
	}
	if err := validatePolicy(p); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(p)
	if !fileLoaded {
		return holder, nil
	}

	log = log.Named("policy")
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Warn("policy.reload.failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("policy.reload.ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy.reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.MinMembers <= 0 {
		return errors.New("policy.minMembers must be positive")
	}
	if p.GracePeriod <= 0 {
		return errors.New("policy.gracePeriod must be positive")
	}
	if p.PartnerDelay < 0 {
		return errors.New("policy.partnerDelay cannot be negative")
	}
	return nil
}
