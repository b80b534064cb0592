// Package commands maps chat subcommands onto partner operations without
// depending on a chat framework.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"github.com/smallbiznis/partnerbot/internal/authorization"
	"github.com/smallbiznis/partnerbot/internal/config"
	partnerdomain "github.com/smallbiznis/partnerbot/internal/partner/domain"
	settingsdomain "github.com/smallbiznis/partnerbot/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	SubcommandAdd          = "add"
	SubcommandRemove       = "remove"
	SubcommandList         = "list"
	SubcommandAccept       = "accept"
	SubcommandDeny         = "deny"
	SubcommandExempt       = "exempt"
	SubcommandAudit        = "audit"
	SubcommandOpenApps     = "openapps"
	SubcommandCloseApps    = "closeapps"
	SubcommandApply        = "apply"
	SubcommandRequirements = "requirements"

	OptionName        = "name"
	OptionInvite      = "invite"
	OptionDescription = "description"
)

type Request struct {
	UserID     string
	Subcommand string
	Options    map[string]string
}

func (r Request) option(name string) string {
	return strings.TrimSpace(r.Options[name])
}

type Response struct {
	Content   string
	Ephemeral bool
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Policy   *config.PolicyHolder
	Partners partnerdomain.Service
	Settings settingsdomain.Service
	Audit    auditdomain.Service
	Authz    authorization.Service
}

type Router struct {
	log      *zap.Logger
	cfg      config.Config
	policy   *config.PolicyHolder
	partners partnerdomain.Service
	settings settingsdomain.Service
	audit    auditdomain.Service
	authz    authorization.Service
}

func New(p Params) *Router {
	return &Router{
		log:      p.Log.Named("commands"),
		cfg:      p.Config,
		policy:   p.Policy,
		partners: p.Partners,
		settings: p.Settings,
		audit:    p.Audit,
		authz:    p.Authz,
	}
}

// permission names the authorization object and action guarding subcommand.
func permission(subcommand string) (string, string) {
	switch subcommand {
	case SubcommandAdd:
		return authorization.ObjectPartner, authorization.ActionCreate
	case SubcommandRemove:
		return authorization.ObjectPartner, authorization.ActionRemove
	case SubcommandAccept:
		return authorization.ObjectPartner, authorization.ActionAccept
	case SubcommandDeny:
		return authorization.ObjectPartner, authorization.ActionDeny
	case SubcommandExempt:
		return authorization.ObjectPartner, authorization.ActionExempt
	case SubcommandAudit:
		return authorization.ObjectAudit, authorization.ActionRun
	case SubcommandOpenApps, SubcommandCloseApps:
		return authorization.ObjectSettings, authorization.ActionManage
	case SubcommandList:
		return authorization.ObjectDirectory, authorization.ActionView
	case SubcommandApply:
		return authorization.ObjectApplication, authorization.ActionSubmit
	case SubcommandRequirements:
		return authorization.ObjectRequirements, authorization.ActionView
	default:
		return "", ""
	}
}

// Ephemeral reports whether the reply is only shown to the caller.
func Ephemeral(subcommand string) bool {
	return subcommand != SubcommandList && subcommand != SubcommandRequirements
}

func (r *Router) Handle(ctx context.Context, req Request) Response {
	sub := strings.ToLower(strings.TrimSpace(req.Subcommand))
	log := r.log.With(zap.String("subcommand", sub), zap.String("user_id", req.UserID))

	if object, action := permission(sub); object != "" {
		if err := r.authz.Authorize(ctx, req.UserID, object, action); err != nil {
			if errors.Is(err, authorization.ErrForbidden) || errors.Is(err, authorization.ErrInvalidActor) {
				log.Info("commands.denied")
				return reply(sub, "Only the bot owners can use this command.")
			}
			log.Error("commands.authorize_failed", zap.Error(err))
			return reply(sub, "Something went wrong. Please try again later.")
		}
	}

	content, err := r.dispatch(ctx, sub, req)
	if err != nil {
		msg := errorMessage(err)
		if msg == "" {
			log.Error("commands.failed", zap.Error(err))
			msg = "Something went wrong. Please try again later."
		} else {
			log.Info("commands.rejected", zap.Error(err))
		}
		return reply(sub, msg)
	}
	return reply(sub, content)
}

func (r *Router) dispatch(ctx context.Context, sub string, req Request) (string, error) {
	switch sub {
	case SubcommandAdd:
		return r.add(ctx, req)
	case SubcommandRemove:
		if err := r.partners.Remove(ctx, req.option(OptionName)); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed **%s** from the partner list.", req.option(OptionName)), nil
	case SubcommandList:
		return r.list(ctx)
	case SubcommandAccept:
		return r.accept(ctx, req)
	case SubcommandDeny:
		return r.deny(ctx, req)
	case SubcommandExempt:
		p, err := r.partners.ToggleExempt(ctx, req.option(OptionName))
		if err != nil {
			return "", err
		}
		if p.ExemptFromRequirements {
			return fmt.Sprintf("**%s** is now exempt from the partner requirements.", p.Name), nil
		}
		return fmt.Sprintf("**%s** is no longer exempt from the partner requirements.", p.Name), nil
	case SubcommandAudit:
		return r.runAudit(ctx)
	case SubcommandOpenApps, SubcommandCloseApps:
		settings, err := r.settings.SetApplicationsOpen(ctx, sub == SubcommandOpenApps)
		if err != nil {
			return "", err
		}
		if settings.ApplicationsOpen {
			return "Partner applications are now open.", nil
		}
		return "Partner applications are now closed.", nil
	case SubcommandApply:
		p, err := r.partners.Apply(ctx, partnerdomain.ApplyRequest{
			ApplicantID:     req.UserID,
			Name:            req.option(OptionName),
			InviteReference: req.option(OptionInvite),
			Description:     req.option(OptionDescription),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Your application for **%s** was submitted. An owner will review it.", p.Name), nil
	case SubcommandRequirements:
		return r.requirements(), nil
	default:
		return "", errUnknownSubcommand
	}
}

func (r *Router) add(ctx context.Context, req Request) (string, error) {
	p, err := r.partners.AddManual(ctx, partnerdomain.AddRequest{
		Name:            req.option(OptionName),
		InviteReference: req.option(OptionInvite),
		Description:     req.option(OptionDescription),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added **%s** as a partner (%d members).", p.Name, p.MemberCount), nil
}

func (r *Router) list(ctx context.Context) (string, error) {
	partners, err := r.partners.List(ctx, partnerdomain.ListRequest{})
	if err != nil {
		return "", err
	}
	if len(partners) == 0 {
		return "No partners found.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Partners** (%d)\n", len(partners))
	for _, p := range partners {
		fmt.Fprintf(&b, "%s **%s**: %s, %d members, <%s>\n", statusIcon(p.Status), p.Name, p.Status, p.MemberCount, p.InviteReference)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) accept(ctx context.Context, req Request) (string, error) {
	name := req.option(OptionName)
	if name == "" {
		return r.pending(ctx, SubcommandAccept)
	}
	p, err := r.partners.AcceptPending(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("**%s** was accepted as a partner.", p.Name), nil
}

func (r *Router) deny(ctx context.Context, req Request) (string, error) {
	name := req.option(OptionName)
	if name == "" {
		return r.pending(ctx, SubcommandDeny)
	}
	if err := r.partners.DenyPending(ctx, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("The application of **%s** was denied.", name), nil
}

func (r *Router) pending(ctx context.Context, sub string) (string, error) {
	status := partnerdomain.StatusPending
	partners, err := r.partners.List(ctx, partnerdomain.ListRequest{Status: &status})
	if err != nil {
		return "", err
	}
	if len(partners) == 0 {
		return "There are no pending applications.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Pending applications** (%d). Use `/partner %s <name>`.\n", len(partners), sub)
	for _, p := range partners {
		fmt.Fprintf(&b, "• **%s**: %s <%s>\n", p.Name, p.Description, p.InviteReference)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *Router) runAudit(ctx context.Context) (string, error) {
	summary, err := r.audit.Run(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Audit completed: %d valid, %d warned, %d invalid, %d pending.",
		summary.ValidCount, summary.WarnedCount, summary.InvalidCount, summary.PendingCount), nil
}

func (r *Router) requirements() string {
	policy := r.policy.Get()
	return fmt.Sprintf("**Partner requirements for %s**\n"+
		"• At least %d members.\n"+
		"• An active and friendly community that follows the Discord guidelines.\n"+
		"• Partners falling below the minimum get %d hours to recover before the partnership ends.",
		r.cfg.Home.Name, policy.MinMembers, int(policy.GracePeriod.Hours()))
}

func reply(sub, content string) Response {
	return Response{Content: content, Ephemeral: Ephemeral(sub)}
}

func statusIcon(status partnerdomain.Status) string {
	switch status {
	case partnerdomain.StatusActive:
		return "✅"
	case partnerdomain.StatusWarned:
		return "⚠️"
	case partnerdomain.StatusInvalid:
		return "❌"
	default:
		return "⏳"
	}
}

var errUnknownSubcommand = errors.New("unknown_subcommand")

// errorMessage returns the user facing text for expected failures, or "" when
// the error is internal.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, errUnknownSubcommand):
		return "Unknown command."
	case errors.Is(err, partnerdomain.ErrNotFound):
		return "No matching partner found."
	case errors.Is(err, partnerdomain.ErrAlreadyExists):
		return "A partner with this name already exists."
	case errors.Is(err, partnerdomain.ErrInvalidName):
		return fmt.Sprintf("Please provide a name of at most %d characters.", partnerdomain.MaxNameLength)
	case errors.Is(err, partnerdomain.ErrInvalidInvite):
		return "Please provide a valid invite link."
	case errors.Is(err, partnerdomain.ErrInvalidDescription):
		return fmt.Sprintf("The description may be at most %d characters.", partnerdomain.MaxDescriptionLength)
	case errors.Is(err, partnerdomain.ErrApplicationsClosed):
		return "Partner applications are currently closed."
	case errors.Is(err, partnerdomain.ErrRateLimited):
		return "You have submitted too many applications. Please try again later."
	case errors.Is(err, auditdomain.ErrAuditInProgress):
		return "An audit is already running."
	case errors.Is(err, auditdomain.ErrAuditAborted):
		return "The audit failed. Details were posted to the log channel."
	default:
		return ""
	}
}
