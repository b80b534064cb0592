package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"github.com/smallbiznis/partnerbot/internal/observability/metrics"
	"github.com/smallbiznis/partnerbot/internal/partner/domain"
	"github.com/smallbiznis/partnerbot/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/partnerbot/internal/settings/domain"
	"github.com/smallbiznis/partnerbot/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Config   config.Config
	Policy   *config.PolicyHolder
	Clock    clock.Clock
	Repo     domain.Repository
	Settings settingsdomain.Service
	Lookup   auditdomain.DirectoryLookup
	Sink     notification.Sink
	Metrics  *metrics.Metrics               `optional:"true"`
	Limiter  *ratelimit.ApplicationLimiter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	policy   *config.PolicyHolder
	clock    clock.Clock
	repo     domain.Repository
	settings settingsdomain.Service
	lookup   auditdomain.DirectoryLookup
	sink     notification.Sink
	metrics  *metrics.Metrics
	limiter  *ratelimit.ApplicationLimiter

	partnerRoleID      string
	logChannelID       string
	communityChannelID string
}

func New(p Params) domain.Service {
	return &Service{
		db:                 p.DB,
		log:                p.Log.Named("partner.service"),
		genID:              p.GenID,
		policy:             p.Policy,
		clock:              p.Clock,
		repo:               p.Repo,
		settings:           p.Settings,
		lookup:             p.Lookup,
		sink:               p.Sink,
		metrics:            p.Metrics,
		limiter:            p.Limiter,
		partnerRoleID:      p.Config.Discord.PartnerRoleID,
		logChannelID:       p.Config.Discord.Channels.Log,
		communityChannelID: p.Config.Discord.Channels.Community,
	}
}

func (s *Service) AddManual(ctx context.Context, req domain.AddRequest) (*domain.Partner, error) {
	name, invite, description, err := validate(req.Name, req.InviteReference, req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, name); err != nil {
		return nil, err
	}

	// The initial count is informational; the threshold is enforced by the audit.
	res, err := s.lookup.Resolve(ctx, invite)
	if err != nil {
		res = auditdomain.Resolution{Valid: false, ErrorDetail: err.Error()}
	}

	partner := s.newPartner(name, invite, description)
	partner.SetLifecycle(domain.Active{})
	if res.Valid {
		partner.MemberCount = res.MemberCount
	}

	if err := s.insert(ctx, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner.added",
		zap.String("partner", partner.Name),
		zap.Bool("invite_valid", res.Valid),
		zap.Int("member_count", partner.MemberCount),
	)
	s.metrics.RecordPartnerEvent(ctx, "add")
	s.announce(ctx, s.logChannelID, notification.Message{
		Title: "Partner added",
		Body:  fmt.Sprintf("%s was added as a partner.", partner.Name),
		Level: notification.LevelSuccess,
		Fields: []notification.Field{
			{Name: "Invite", Value: partner.InviteReference},
			{Name: "Members", Value: fmt.Sprintf("%d", partner.MemberCount), Inline: true},
		},
	})
	return partner, nil
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyRequest) (*domain.Partner, error) {
	applicant := strings.TrimSpace(req.ApplicantID)
	if applicant == "" {
		return nil, domain.ErrInvalidApplicant
	}
	name, invite, description, err := validate(req.Name, req.InviteReference, req.Description)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.ApplicationsOpen {
		return nil, domain.ErrApplicationsClosed
	}

	if s.limiter.Enabled() {
		result, err := s.limiter.AllowApplicant(ctx, applicant)
		if err != nil {
			s.log.Warn("partner.apply.rate_limit_unavailable", zap.Error(err))
		} else if !result.Allowed {
			return nil, domain.ErrRateLimited
		}
	}

	if err := s.ensureUnique(ctx, name); err != nil {
		return nil, err
	}

	partner := s.newPartner(name, invite, description)
	partner.SetLifecycle(domain.Pending{})
	partner.ApplicantID = &applicant

	if err := s.insert(ctx, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner.applied", zap.String("partner", partner.Name), zap.String("applicant_id", applicant))
	s.metrics.RecordPartnerEvent(ctx, "apply")
	s.notify(ctx, *partner, notification.KindApplicationReceived)
	s.announce(ctx, s.logChannelID, notification.Message{
		Title: "New partner application",
		Body:  fmt.Sprintf("From <@%s> (%s)", applicant, applicant),
		Level: notification.LevelInfo,
		Fields: []notification.Field{
			{Name: "Server", Value: partner.Name},
			{Name: "Invite", Value: partner.InviteReference},
			{Name: "Description", Value: partner.Description},
		},
	})
	return partner, nil
}

func (s *Service) AcceptPending(ctx context.Context, ref string) (*domain.Partner, error) {
	partner, err := s.findPending(ctx, ref)
	if err != nil {
		return nil, err
	}

	partner.SetLifecycle(domain.Active{})
	partner.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner.accepted", zap.String("partner", partner.Name))
	s.metrics.RecordPartnerEvent(ctx, "accept")

	s.notify(ctx, *partner, notification.KindApplicationAccepted)
	if applicant := partner.Applicant(); applicant != "" && s.partnerRoleID != "" {
		err := s.sink.SetRole(ctx, applicant, s.partnerRoleID, true)
		s.metrics.RecordNotification(ctx, "role_grant", err)
		if err != nil {
			s.log.Warn("partner.role_grant_failed", zap.String("partner", partner.Name), zap.Error(err))
		}
	}
	s.announce(ctx, s.communityChannelID, notification.Message{
		Title: "New partner!",
		Body:  fmt.Sprintf("Please welcome %s as our new partner!", partner.Name),
		Level: notification.LevelSuccess,
		Fields: []notification.Field{
			{Name: "Description", Value: partner.Description},
			{Name: "Join", Value: partner.InviteReference},
		},
	})
	s.announce(ctx, s.logChannelID, notification.Message{
		Title: "Partner accepted",
		Body:  fmt.Sprintf("%s was accepted.", partner.Name),
		Level: notification.LevelSuccess,
	})
	return partner, nil
}

func (s *Service) DenyPending(ctx context.Context, ref string) error {
	partner, err := s.findPending(ctx, ref)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, s.db, partner.ID); err != nil {
		return err
	}

	s.notify(ctx, *partner, notification.KindApplicationDenied)
	s.log.Info("partner.denied", zap.String("partner", partner.Name))
	s.metrics.RecordPartnerEvent(ctx, "deny")
	s.announce(ctx, s.logChannelID, notification.Message{
		Title: "Partner application denied",
		Body:  fmt.Sprintf("%s was denied.", partner.Name),
		Level: notification.LevelWarning,
	})
	return nil
}

func (s *Service) Remove(ctx context.Context, ref string) error {
	partner, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, partner.ID); err != nil {
		return err
	}

	s.log.Info("partner.removed", zap.String("partner", partner.Name), zap.String("status", string(partner.Status)))
	s.metrics.RecordPartnerEvent(ctx, "remove")
	s.announce(ctx, s.logChannelID, notification.Message{
		Title: "Partner removed",
		Body:  fmt.Sprintf("%s was removed.", partner.Name),
		Level: notification.LevelWarning,
	})
	return nil
}

func (s *Service) ToggleExempt(ctx context.Context, ref string) (*domain.Partner, error) {
	partner, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	partner.ExemptFromRequirements = !partner.ExemptFromRequirements
	partner.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner.exempt.updated",
		zap.String("partner", partner.Name),
		zap.Bool("exempt", partner.ExemptFromRequirements),
	)
	s.metrics.RecordPartnerEvent(ctx, "exempt")
	return partner, nil
}

func (s *Service) Get(ctx context.Context, ref string) (*domain.Partner, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrNotFound
	}
	partner, err := s.repo.FindByRef(ctx, s.db, ref)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, domain.ErrNotFound
	}
	return partner, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Partner, error) {
	if req.Status == nil {
		return s.repo.FindAll(ctx, s.db)
	}
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.FindByStatus(ctx, s.db, *req.Status)
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	active, err := s.repo.CountByStatus(ctx, s.db, domain.StatusActive)
	if err != nil {
		return nil, err
	}
	warned, err := s.repo.CountByStatus(ctx, s.db, domain.StatusWarned)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.CountByStatus(ctx, s.db, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{
		ActivePartners:      active,
		WarnedPartners:      warned,
		PendingApplications: pending,
		ApplicationsOpen:    settings.ApplicationsOpen,
	}, nil
}

func (s *Service) findPending(ctx context.Context, ref string) (*domain.Partner, error) {
	partner, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if partner.Status != domain.StatusPending {
		return nil, domain.ErrNotFound
	}
	return partner, nil
}

func (s *Service) ensureUnique(ctx context.Context, name string) error {
	exists, err := s.repo.ExistsByName(ctx, s.db, name)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (s *Service) newPartner(name, invite, description string) *domain.Partner {
	now := s.clock.Now()
	id := s.genID.Generate()
	return &domain.Partner{
		ID:              id,
		Name:            name,
		Slug:            slugFor(name, id),
		InviteReference: invite,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) insert(ctx context.Context, partner *domain.Partner) error {
	if err := s.repo.Insert(ctx, s.db, partner); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Service) notify(ctx context.Context, partner domain.Partner, kind notification.Kind) {
	applicant := partner.Applicant()
	if applicant == "" {
		return
	}
	policy := s.policy.Get()
	err := s.sink.DirectMessage(ctx, applicant, kind, notification.Payload{
		PartnerName:     partner.Name,
		InviteReference: partner.InviteReference,
		Description:     partner.Description,
		MemberCount:     partner.MemberCount,
		RequiredMembers: policy.MinMembers,
		GracePeriod:     policy.GracePeriod,
	})
	s.metrics.RecordNotification(ctx, string(kind), err)
	if err != nil {
		s.log.Warn("partner.notify_failed",
			zap.String("partner", partner.Name),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (s *Service) announce(ctx context.Context, channelID string, msg notification.Message) {
	if channelID == "" {
		return
	}
	if err := s.sink.Announce(ctx, channelID, msg); err != nil {
		s.log.Warn("partner.announce_failed", zap.String("title", msg.Title), zap.Error(err))
	}
}

func validate(name, invite, description string) (string, string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > domain.MaxNameLength {
		return "", "", "", domain.ErrInvalidName
	}
	invite = strings.TrimSpace(invite)
	if invite == "" || strings.ContainsAny(invite, " \t\n") {
		return "", "", "", domain.ErrInvalidInvite
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
		return "", "", "", domain.ErrInvalidDescription
	}
	return name, invite, description, nil
}

// slugFor keeps ids out of the slug namespace so FindByRef stays unambiguous.
func slugFor(name string, id snowflake.ID) string {
	s := slug.Make(name)
	if s == "" {
		return "partner-" + id.String()
	}
	if _, err := snowflake.ParseString(s); err == nil {
		return "p-" + s
	}
	return s
}
