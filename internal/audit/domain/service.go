package domain

import (
	"context"
	"errors"

	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
)

// Reporter publishes audit results for operators. Failures are swallowed.
type Reporter interface {
	Report(ctx context.Context, summary *Summary)
	ReportFailure(ctx context.Context, err error)
}

type Service interface {
	// RunAudit reconciles partners in order. It returns a nil summary and an
	// error when the run could not complete; partners already persisted stay so.
	RunAudit(ctx context.Context, partners []partnerdomain.Partner) (*Summary, error)
	// Run loads every partner under the run lock, audits and reports.
	Run(ctx context.Context) (*Summary, error)
}

var (
	ErrAuditInProgress = errors.New("audit_in_progress")
	ErrAuditAborted    = errors.New("audit_aborted")
)
