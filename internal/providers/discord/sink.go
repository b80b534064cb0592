package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/smallbiznis/partnerbot/internal/clock"
	"github.com/smallbiznis/partnerbot/internal/config"
	"github.com/smallbiznis/partnerbot/internal/notification"
	"go.uber.org/zap"
)

const (
	colorInfo    = 0x5865f2
	colorSuccess = 0x57f287
	colorWarning = 0xfee75c
	colorError   = 0xed4245

	maxEmbedDescription = 4096
	maxFieldValue       = 1024
)

var (
	errMissingUser    = errors.New("discord_user_required")
	errMissingChannel = errors.New("discord_channel_required")
	errMissingGuild   = errors.New("discord_guild_required")
	errMissingRole    = errors.New("discord_role_required")
)

// Sink delivers notifications through the Discord REST API.
type Sink struct {
	api     API
	guildID string
	clock   clock.Clock
	log     *zap.Logger
}

// NewSink returns a Discord backed sink, or a logging no-op when Discord is disabled.
func NewSink(session *discordgo.Session, cfg config.Config, clk clock.Clock, log *zap.Logger) notification.Sink {
	if session == nil {
		return notification.NewNoopSink(log)
	}
	return newSink(session, cfg.Discord.GuildID, clk, log)
}

func newSink(api API, guildID string, clk clock.Clock, log *zap.Logger) *Sink {
	return &Sink{
		api:     api,
		guildID: guildID,
		clock:   clk,
		log:     log.Named("discord.sink"),
	}
}

func (s *Sink) DirectMessage(ctx context.Context, userID string, kind notification.Kind, payload notification.Payload) error {
	if strings.TrimSpace(userID) == "" {
		return errMissingUser
	}
	channel, err := s.api.UserChannelCreate(userID, requestContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	msg := notification.Render(kind, payload)
	if _, err := s.api.ChannelMessageSendEmbed(channel.ID, s.embed(msg), requestContext(ctx)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	s.log.Debug("discord.dm.sent", zap.String("user_id", userID), zap.String("kind", string(kind)))
	return nil
}

func (s *Sink) SetRole(ctx context.Context, userID, roleID string, present bool) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return errMissingUser
	case strings.TrimSpace(roleID) == "":
		return errMissingRole
	case s.guildID == "":
		return errMissingGuild
	}
	if present {
		return s.api.GuildMemberRoleAdd(s.guildID, userID, roleID, requestContext(ctx))
	}
	return s.api.GuildMemberRoleRemove(s.guildID, userID, roleID, requestContext(ctx))
}

func (s *Sink) Announce(ctx context.Context, channelID string, msg notification.Message) error {
	if strings.TrimSpace(channelID) == "" {
		return errMissingChannel
	}
	if _, err := s.api.ChannelMessageSendEmbed(channelID, s.embed(msg), requestContext(ctx)); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	return nil
}

func (s *Sink) embed(msg notification.Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: truncate(msg.Body, maxEmbedDescription),
		Color:       color(msg.Level),
		Timestamp:   s.clock.Now().Format(time.RFC3339),
	}
	for _, f := range msg.Fields {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			value = "-"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  truncate(value, maxFieldValue),
			Inline: f.Inline,
		})
	}
	return embed
}

func color(level notification.Level) int {
	switch level {
	case notification.LevelSuccess:
		return colorSuccess
	case notification.LevelWarning:
		return colorWarning
	case notification.LevelError:
		return colorError
	default:
		return colorInfo
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
