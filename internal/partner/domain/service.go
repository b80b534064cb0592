package domain

import (
	"context"
	"errors"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
)

type AddRequest struct {
	Name            string `json:"name"`
	InviteReference string `json:"invite_reference"`
	Description     string `json:"description"`
}

type ApplyRequest struct {
	ApplicantID     string `json:"-"`
	Name            string `json:"name"`
	InviteReference string `json:"invite_reference"`
	Description     string `json:"description"`
}

type ListRequest struct {
	Status *Status
}

type Stats struct {
	ActivePartners      int64 `json:"active_partners"`
	WarnedPartners      int64 `json:"warned_partners"`
	PendingApplications int64 `json:"pending_applications"`
	ApplicationsOpen    bool  `json:"applications_open"`
}

// Service applies lifecycle mutations that happen outside the audit.
type Service interface {
	AddManual(ctx context.Context, req AddRequest) (*Partner, error)
	Apply(ctx context.Context, req ApplyRequest) (*Partner, error)
	AcceptPending(ctx context.Context, ref string) (*Partner, error)
	DenyPending(ctx context.Context, ref string) error
	Remove(ctx context.Context, ref string) error
	ToggleExempt(ctx context.Context, ref string) (*Partner, error)
	Get(ctx context.Context, ref string) (*Partner, error)
	List(ctx context.Context, req ListRequest) ([]Partner, error)
	Stats(ctx context.Context) (*Stats, error)
}

var (
	ErrNotFound           = errors.New("partner_not_found")
	ErrAlreadyExists      = errors.New("partner_already_exists")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidInvite      = errors.New("invalid_invite")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidApplicant   = errors.New("invalid_applicant")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrApplicationsClosed = errors.New("applications_closed")
	ErrRateLimited        = errors.New("rate_limited")
)
