package authorization

import (
	"context"
	"errors"
)

const (
	ObjectDashboard    = "dashboard"
	ObjectPartner      = "partner"
	ObjectDirectory    = "directory"
	ObjectApplication  = "application"
	ObjectSettings     = "settings"
	ObjectAudit        = "audit"
	ObjectAdvert       = "advert"
	ObjectRequirements = "requirements"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionAccept = "accept"
	ActionDeny   = "deny"
	ActionRemove = "remove"
	ActionExempt = "exempt"
	ActionSubmit = "submit"
	ActionManage = "manage"
	ActionRun    = "run"
	ActionPost   = "post"
)

const RoleOwner = "role:owner"

// Service decides whether a Discord user may perform action on object.
type Service interface {
	Authorize(ctx context.Context, userID string, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
