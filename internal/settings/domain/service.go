package domain

import "context"

type Service interface {
	// Get returns the stored settings, or closed applications when none were ever written.
	Get(ctx context.Context) (Settings, error)
	SetApplicationsOpen(ctx context.Context, open bool) (Settings, error)
	ToggleApplications(ctx context.Context) (Settings, error)
}
