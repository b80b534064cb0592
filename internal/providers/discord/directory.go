package discord

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"
	auditdomain "github.com/smallbiznis/partnerbot/internal/audit/domain"
	"go.uber.org/zap"
)

// Directory resolves invite references through the invite-with-counts endpoint.
type Directory struct {
	api API
	log *zap.Logger
}

// NewDirectory returns the invite resolver. Without a session every lookup
// fails with ErrDirectoryUnavailable.
func NewDirectory(session *discordgo.Session, log *zap.Logger) auditdomain.DirectoryLookup {
	if session == nil {
		return auditdomain.DirectoryLookupFunc(func(ctx context.Context, ref string) (auditdomain.Resolution, error) {
			return auditdomain.Resolution{}, auditdomain.ErrDirectoryUnavailable
		})
	}
	return newDirectory(session, log)
}

func newDirectory(api API, log *zap.Logger) *Directory {
	return &Directory{api: api, log: log.Named("discord.directory")}
}

// Resolve never returns an error; API failures become invalid resolutions.
func (d *Directory) Resolve(ctx context.Context, ref string) (auditdomain.Resolution, error) {
	code := InviteCode(ref)
	if code == "" {
		return auditdomain.Resolution{Valid: false, ErrorDetail: "empty invite reference"}, nil
	}

	invite, err := d.api.InviteWithCounts(code, requestContext(ctx))
	if err != nil {
		d.log.Debug("discord.invite.lookup_failed", zap.String("code", code), zap.Error(err))
		return auditdomain.Resolution{Valid: false, ErrorDetail: errorDetail(err)}, nil
	}
	if invite == nil {
		return auditdomain.Resolution{Valid: false, ErrorDetail: "empty invite response"}, nil
	}
	return auditdomain.Resolution{Valid: true, MemberCount: memberCount(invite)}, nil
}

// InviteCode extracts the code from a bare code or an invite URL such as
// https://discord.gg/<code>?event=1 or https://discord.com/invite/<code>.
func InviteCode(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		ref = u.Path
	} else if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.TrimSpace(ref)
}

func memberCount(invite *discordgo.Invite) int {
	if invite.ApproximateMemberCount > 0 {
		return invite.ApproximateMemberCount
	}
	if invite.Guild != nil {
		if invite.Guild.ApproximateMemberCount > 0 {
			return invite.Guild.ApproximateMemberCount
		}
		return invite.Guild.MemberCount
	}
	return 0
}

func errorDetail(err error) string {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Message != "" {
		return restErr.Message.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "lookup timed out"
	}
	return err.Error()
}
