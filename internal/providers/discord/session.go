package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/smallbiznis/partnerbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// API is the subset of the Discord REST client used for side effects and lookups.
type API interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	InviteWithCounts(inviteID string, options ...discordgo.RequestOption) (*discordgo.Invite, error)
}

// NewSession builds the REST session. It returns nil when no bot token is
// configured; the gateway is only opened by the bot processes.
func NewSession(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*discordgo.Session, error) {
	log = log.Named("discord")
	if !cfg.DiscordEnabled() {
		log.Warn("discord.disabled", zap.String("reason", "DISCORD_TOKEN not set"))
		return nil, nil
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.UserAgent = fmt.Sprintf("DiscordBot (%s, %s)", cfg.AppName, cfg.AppVersion)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			session.Client.CloseIdleConnections()
			return nil
		},
	})
	return session, nil
}

func requestContext(ctx context.Context) discordgo.RequestOption {
	return discordgo.WithContext(ctx)
}
