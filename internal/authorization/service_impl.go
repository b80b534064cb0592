package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/partnerbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and syncs the owner
// role with the configured owner ids.
func NewEnforcer(db *gorm.DB, cfg config.Config) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newEnforcer(adapter, cfg.Discord.OwnerIDs)
}

// NewInMemory builds a service with no policy storage.
func NewInMemory(log *zap.Logger, ownerIDs []string) (Service, error) {
	enforcer, err := newEnforcer(nil, ownerIDs)
	if err != nil {
		return nil, err
	}
	return NewService(Params{Log: log, Enforcer: enforcer}), nil
}

func newEnforcer(adapter persist.Adapter, ownerIDs []string) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter != nil {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := syncOwners(enforcer, ownerIDs); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID string, object string, action string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(subject(userID), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization.denied",
			zap.String("user_id", userID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subject(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// syncOwners makes the owner role match ownerIDs exactly, revoking owners
// dropped from configuration.
func syncOwners(enforcer *casbin.SyncedEnforcer, ownerIDs []string) error {
	want := make(map[string]bool, len(ownerIDs))
	for _, id := range ownerIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			want[subject(id)] = true
		}
	}

	existing, err := enforcer.GetFilteredGroupingPolicy(1, RoleOwner)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || want[rule[0]] {
			delete(want, rule[0])
			continue
		}
		if _, err := enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}
	for sub := range want {
		if _, err := enforcer.AddGroupingPolicy(sub, RoleOwner); err != nil {
			return err
		}
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Anyone
		{"*", ObjectDirectory, ActionView},
		{"*", ObjectRequirements, ActionView},
		{"*", ObjectApplication, ActionSubmit},

		// Owner permissions
		{RoleOwner, ObjectDashboard, ActionView},
		{RoleOwner, ObjectPartner, "*"},
		{RoleOwner, ObjectSettings, ActionManage},
		{RoleOwner, ObjectAudit, ActionRun},
		{RoleOwner, ObjectAdvert, ActionPost},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
