package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/smallbiznis/partnerbot/internal/commands"
	"github.com/smallbiznis/partnerbot/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	commandName = "partner"

	// Interaction tokens stay valid for fifteen minutes.
	interactionTimeout = 15 * time.Minute
	maxMessageLength   = 2000
)

// CommandRouter handles a parsed slash command.
type CommandRouter interface {
	Handle(ctx context.Context, req commands.Request) commands.Response
}

type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type GatewayParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Session   *discordgo.Session `optional:"true"`
	Config    config.Config
	Router    *commands.Router
	Log       *zap.Logger
}

// Gateway keeps the websocket open and routes /partner interactions.
type Gateway struct {
	api    interactionAPI
	router CommandRouter
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewGateway(p GatewayParams) (*Gateway, error) {
	log := p.Log.Named("discord.gateway")
	if p.Session == nil {
		log.Warn("discord.gateway.disabled")
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		api:    p.Session,
		router: p.Router,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	session := p.Session
	var removeHandler func()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			removeHandler = session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
				g.handle(i.Interaction)
			})
			if err := session.Open(); err != nil {
				return fmt.Errorf("open discord gateway: %w", err)
			}
			if err := registerCommands(ctx, session, p.Config); err != nil {
				return err
			}
			log.Info("discord.gateway.started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			g.cancel()
			if removeHandler != nil {
				removeHandler()
			}
			return session.Close()
		},
	})
	return g, nil
}

func registerCommands(ctx context.Context, session *discordgo.Session, cfg config.Config) error {
	appID := cfg.Discord.ApplicationID
	if appID == "" && session.State != nil && session.State.User != nil {
		appID = session.State.User.ID
	}
	if appID == "" {
		return errors.New("discord application id is required to register commands")
	}
	_, err := session.ApplicationCommandBulkOverwrite(appID, cfg.Discord.GuildID, CommandDefinitions(), requestContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	return nil
}

func (g *Gateway) handle(i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != commandName {
		return
	}
	req := requestFromInteraction(i)
	log := g.log.With(zap.String("subcommand", req.Subcommand), zap.String("user_id", req.UserID))

	ctx, cancel := context.WithTimeout(g.ctx, interactionTimeout)
	defer cancel()

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{},
	}
	if commands.Ephemeral(req.Subcommand) {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := g.api.InteractionRespond(i, resp, requestContext(ctx)); err != nil {
		log.Warn("discord.interaction.defer_failed", zap.Error(err))
		return
	}

	out := g.router.Handle(ctx, req)
	content := truncate(out.Content, maxMessageLength)
	if _, err := g.api.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}, requestContext(context.WithoutCancel(ctx))); err != nil {
		log.Warn("discord.interaction.reply_failed", zap.Error(err))
	}
}

func requestFromInteraction(i *discordgo.Interaction) commands.Request {
	req := commands.Request{Options: map[string]string{}}
	switch {
	case i.Member != nil && i.Member.User != nil:
		req.UserID = i.Member.User.ID
	case i.User != nil:
		req.UserID = i.User.ID
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return req
	}
	sub := data.Options[0]
	req.Subcommand = sub.Name
	for _, opt := range sub.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			req.Options[opt.Name] = opt.StringValue()
		}
	}
	return req
}

// CommandDefinitions describes the /partner command tree.
func CommandDefinitions() []*discordgo.ApplicationCommand {
	name := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        commands.OptionName,
			Description: "Server name",
			Required:    required,
			MaxLength:   100,
		}
	}
	invite := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        commands.OptionInvite,
		Description: "Invite link",
		Required:    true,
	}
	description := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        commands.OptionDescription,
			Description: "Advertisement text",
			Required:    required,
			MaxLength:   1000,
		}
	}
	sub := func(n, d string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        n,
			Description: d,
			Options:     opts,
		}
	}

	return []*discordgo.ApplicationCommand{{
		Name:        commandName,
		Description: "Manage partner servers",
		Options: []*discordgo.ApplicationCommandOption{
			sub(commands.SubcommandAdd, "Add a partner", name(true), invite, description(true)),
			sub(commands.SubcommandRemove, "Remove a partner", name(true)),
			sub(commands.SubcommandList, "List all partners"),
			sub(commands.SubcommandAccept, "Accept a pending application", name(false)),
			sub(commands.SubcommandDeny, "Deny a pending application", name(false)),
			sub(commands.SubcommandExempt, "Toggle the requirement exemption", name(true)),
			sub(commands.SubcommandAudit, "Run the partner audit now"),
			sub(commands.SubcommandOpenApps, "Open partner applications"),
			sub(commands.SubcommandCloseApps, "Close partner applications"),
			sub(commands.SubcommandApply, "Apply as a partner", name(true), invite, description(true)),
			sub(commands.SubcommandRequirements, "Show the partner requirements"),
		},
	}}
}
