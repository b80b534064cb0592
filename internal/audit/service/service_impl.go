package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"github.com/smallbiznis/partnerbot/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	"github.com/smallbiznis/partnerbot/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const runLockKey = "partnerbot:audit:run"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Policy   *config.PolicyHolder
	Clock    clock.Clock
	Repo     partnerdomain.Repository
	Lookup   auditdomain.DirectoryLookup
	Sink     notification.Sink
	Reporter auditdomain.Reporter
	Locker   ratelimit.Locker
	Metrics  *metrics.AuditMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	policy   *config.PolicyHolder
	clock    clock.Clock
	repo     partnerdomain.Repository
	lookup   auditdomain.DirectoryLookup
	sink     notification.Sink
	reporter auditdomain.Reporter
	locker   ratelimit.Locker
	metrics  *metrics.AuditMetrics
	tracer   trace.Tracer

	partnerRoleID string
	lockTTL       time.Duration
}

func New(p Params) auditdomain.Service {
	lockTTL := p.Config.Jobs.AuditTimeout
	if lockTTL <= 0 {
		lockTTL = 2 * time.Hour
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("audit.service"),
		policy:        p.Policy,
		clock:         p.Clock,
		repo:          p.Repo,
		lookup:        p.Lookup,
		sink:          p.Sink,
		reporter:      p.Reporter,
		locker:        p.Locker,
		metrics:       p.Metrics,
		tracer:        otel.Tracer("partnerbot/audit"),
		partnerRoleID: p.Config.Discord.PartnerRoleID,
		lockTTL:       lockTTL,
	}
}

func (s *Service) Run(ctx context.Context) (*auditdomain.Summary, error) {
	token, ok, err := s.locker.TryLock(ctx, runLockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire audit lock: %w", err)
	}
	if !ok {
		s.log.Info("audit.skipped", zap.String("reason", "in_progress"))
		return nil, auditdomain.ErrAuditInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), runLockKey, token); err != nil {
			s.log.Warn("audit.lock.release_failed", zap.Error(err))
		}
	}()

	partners, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		err = fmt.Errorf("%w: load partners: %w", auditdomain.ErrAuditAborted, err)
		s.reporter.ReportFailure(ctx, err)
		return nil, err
	}

	summary, err := s.RunAudit(ctx, partners)
	if err != nil {
		s.reporter.ReportFailure(ctx, err)
		return nil, err
	}
	s.reporter.Report(ctx, summary)
	return summary, nil
}

func (s *Service) RunAudit(ctx context.Context, partners []partnerdomain.Partner) (summary *auditdomain.Summary, err error) {
	ctx, span := s.tracer.Start(ctx, "audit.run", trace.WithAttributes(attribute.Int("partner_count", len(partners))))
	start := s.clock.Now()
	policy := s.policy.Get()

	defer func() {
		if r := recover(); r != nil {
			summary = nil
			err = fmt.Errorf("%w: panic: %v", auditdomain.ErrAuditAborted, r)
		}
		result := metrics.AuditRunCompleted
		if err != nil {
			result = metrics.AuditRunAborted
			span.RecordError(err)
			span.SetStatus(codes.Error, "audit aborted")
			s.log.Error("audit.aborted", zap.Error(err))
		}
		end := s.clock.Now()
		s.metrics.ObserveRun(result, end.Sub(start), end)
		span.End()
	}()

	s.log.Info("audit.started",
		zap.Int("partners", len(partners)),
		zap.Int("min_members", policy.MinMembers),
		zap.Duration("grace_period", policy.GracePeriod),
	)

	out := auditdomain.NewSummary()
	for i := range partners {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", auditdomain.ErrAuditAborted, err)
		}

		partner := partners[i]
		result, err := s.auditPartner(ctx, &partner, policy)
		if err != nil {
			return nil, err
		}
		out.Add(result)
		s.metrics.IncOutcome(string(result.Outcome))

		if partner.ExemptFromRequirements {
			continue
		}
		if err := s.clock.Sleep(ctx, policy.PartnerDelay); err != nil && i < len(partners)-1 {
			return nil, fmt.Errorf("%w: %w", auditdomain.ErrAuditAborted, err)
		}
	}

	s.log.Info("audit.completed",
		zap.Int("valid", out.ValidCount),
		zap.Int("warned", out.WarnedCount),
		zap.Int("invalid", out.InvalidCount),
		zap.Int("pending", out.PendingCount),
	)
	return out, nil
}

func (s *Service) auditPartner(ctx context.Context, partner *partnerdomain.Partner, policy config.Policy) (auditdomain.Result, error) {
	ctx, span := s.tracer.Start(ctx, "audit.partner", trace.WithAttributes(
		attribute.String("partner.id", partner.ID.String()),
		attribute.String("partner.status", string(partner.Status)),
		attribute.Bool("partner.exempt", partner.ExemptFromRequirements),
	))
	defer span.End()

	log := s.log.With(zap.String("partner", partner.Name), zap.String("partner_id", partner.ID.String()))

	exempt := partner.ExemptFromRequirements
	var res auditdomain.Resolution
	if !exempt {
		var err error
		res, err = s.resolve(ctx, partner.InviteReference, log)
		if err != nil {
			span.RecordError(err)
			return auditdomain.Result{}, fmt.Errorf("%w: resolve %s: %w", auditdomain.ErrAuditAborted, partner.Name, err)
		}
	}
	now := s.clock.Now()
	decision := auditdomain.Decide(partner.Lifecycle(), exempt, res, now, policy)
	if !decision.Persist {
		return auditdomain.Result{
			PartnerName: partner.Name,
			Outcome:     decision.Outcome,
			MemberCount: partner.MemberCount,
		}, nil
	}

	previous := partner.Status
	partner.SetLifecycle(decision.Next)
	partner.MemberCount = decision.MemberCount
	partner.LastAuditAt = &now
	partner.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, partner); err != nil {
		span.RecordError(err)
		return auditdomain.Result{}, fmt.Errorf("%w: save partner %s: %w", auditdomain.ErrAuditAborted, partner.Name, err)
	}

	if previous != partner.Status {
		log.Info("audit.partner.transition",
			zap.String("from", string(previous)),
			zap.String("to", string(partner.Status)),
			zap.Int("member_count", partner.MemberCount),
		)
	}
	span.SetAttributes(attribute.String("audit.outcome", string(decision.Outcome)))

	s.applySideEffects(ctx, *partner, decision, policy, log)

	result := auditdomain.Result{
		PartnerName:    partner.Name,
		Outcome:        decision.Outcome,
		MemberCount:    decision.MemberCount,
		RemainingHours: decision.RemainingHours,
		Terminated:     decision.Terminated,
		NewWarning:     decision.NotifyWarning,
	}
	if !res.Valid {
		result.Detail = res.ErrorDetail
		if result.Detail == "" {
			result.Detail = "lookup failed"
		}
	}
	return result, nil
}

// resolve turns lookup errors into an invalid resolution. Only an unavailable
// directory is returned as an error.
func (s *Service) resolve(ctx context.Context, ref string, log *zap.Logger) (auditdomain.Resolution, error) {
	res, err := s.lookup.Resolve(ctx, ref)
	if errors.Is(err, auditdomain.ErrDirectoryUnavailable) {
		return auditdomain.Resolution{}, err
	}
	if err != nil {
		res = auditdomain.Resolution{Valid: false, ErrorDetail: err.Error()}
	}
	if !res.Valid {
		s.metrics.IncLookupFailure()
		log.Info("audit.partner.lookup_failed", zap.String("detail", res.ErrorDetail))
	}
	return res, nil
}

func (s *Service) applySideEffects(ctx context.Context, partner partnerdomain.Partner, d auditdomain.Decision, policy config.Policy, log *zap.Logger) {
	applicant := partner.Applicant()
	if applicant == "" {
		return
	}
	payload := notification.Payload{
		PartnerName:     partner.Name,
		InviteReference: partner.InviteReference,
		Description:     partner.Description,
		MemberCount:     d.MemberCount,
		RequiredMembers: policy.MinMembers,
		GracePeriod:     policy.GracePeriod,
	}

	if d.NotifyWarning {
		s.directMessage(ctx, applicant, notification.KindWarningIssued, payload, log)
	}
	if d.NotifyRestored {
		s.directMessage(ctx, applicant, notification.KindRequirementsRestored, payload, log)
	}
	if d.RevokeRole && s.partnerRoleID != "" {
		if err := s.sink.SetRole(ctx, applicant, s.partnerRoleID, false); err != nil {
			s.metrics.IncNotificationFailure("role_revoke")
			log.Warn("audit.partner.role_revoke_failed", zap.Error(err))
		}
	}
	if d.NotifyTerminated {
		s.directMessage(ctx, applicant, notification.KindPartnershipTerminated, payload, log)
	}
}

func (s *Service) directMessage(ctx context.Context, userID string, kind notification.Kind, payload notification.Payload, log *zap.Logger) {
	if err := s.sink.DirectMessage(ctx, userID, kind, payload); err != nil {
		s.metrics.IncNotificationFailure(string(kind))
		log.Warn("audit.partner.notify_failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}
