// Package rules provides server rules acceptance gate for joining members
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/model"
	"github.com/eientei/doorman/discordbot/modules/help"
	"github.com/eientei/doorman/discordbot/router"
)

// Scope is the record scope of rules settings
const Scope = "rules"

// DefaultRules is the rules text set by rules set
const DefaultRules = "Welcome! Please react with " + emojiYes + " to accept the rules."

const (
	emojiYes = "\U0001F1FE"
	emojiNo  = "\U0001F1F3"
)

var (
	// ErrInvalidArgumentNumber is returned on invalid argument number
	ErrInvalidArgumentNumber = errors.New("invalid argument number, use rules for help")
	// ErrNotConfigured is returned when rules were not set for the server
	ErrNotConfigured = errors.New("rules are not set up on this server, use rules set first")
	// ErrUnknownRole is returned when role name does not match any server role
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidColor is returned when color can not be parsed
	ErrInvalidColor = errors.New("invalid color, use hex notation like #3b8eea")
)

// Settings holds rules configuration of a server
type Settings struct {
	Rules   string `json:"rules"`
	Channel string `json:"channel"`
	Role    string `json:"role"`
	Color   string `json:"color,omitempty"`
}

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
	config *bot.Configuration
	ctx    context.Context
	cancel context.CancelFunc
	m      sync.Mutex
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config
	mod.ctx, mod.cancel = context.WithCancel(context.Background())

	config.AddHandler(mod.handlerMemberAdd)

	group := config.Router.Group("rules").SetDescription("rules acceptance on join")

	group.On("rules", "prints rules commands", help.GroupHelp)
	group.On("rules set", "initializes rules with default message and channel", mod.commandSet)
	group.On("rules channel", "sets channel to post rules to", mod.commandChannel)
	group.On("rules change", "changes rules message", mod.commandChange)
	group.On("rules role", "sets role granted on acceptance", mod.commandRole)
	group.On("rules color", "sets rules embed color, no argument to reset", mod.commandColor)
	group.On("rules show", "shows rules settings", mod.commandShow)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {
	mod.cancel()
}

func (mod *module) load(guildID string) (*Settings, error) {
	settings := &Settings{}

	err := mod.config.Store.RecordGet(mod.ctx, Scope, guildID, settings)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrNotConfigured
	}

	if err != nil {
		return nil, err
	}

	return settings, nil
}

// update applies fn to current settings of the guild and persists them
func (mod *module) update(guildID string, fn func(settings *Settings) error) error {
	mod.m.Lock()
	defer mod.m.Unlock()

	settings, err := mod.load(guildID)
	if err != nil {
		return err
	}

	err = fn(settings)
	if err != nil {
		return err
	}

	return mod.config.Store.RecordPut(mod.ctx, Scope, guildID, settings)
}

func (mod *module) commandSet(ctx *router.Context) error {
	guild, err := mod.config.Session.Guild(ctx.Message.GuildID)
	if err != nil {
		return err
	}

	channelID := guild.SystemChannelID
	if channelID == "" {
		channelID = ctx.Message.ChannelID
	}

	mod.m.Lock()
	defer mod.m.Unlock()

	return mod.config.Store.RecordPut(mod.ctx, Scope, ctx.Message.GuildID, &Settings{
		Rules:   DefaultRules,
		Channel: channelID,
	})
}

func (mod *module) commandChannel(ctx *router.Context) error {
	if len(ctx.Args) < 3 {
		return ErrInvalidArgumentNumber
	}

	return mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		channel, err := bot.ResolveChannel(mod.config.Session, ctx.Message.GuildID, ctx.Args.Get(2))
		if err != nil {
			return err
		}

		settings.Channel = channel.ID

		return nil
	})
}

func (mod *module) commandChange(ctx *router.Context) error {
	text := ctx.Rest(2)
	if text == "" {
		return ErrInvalidArgumentNumber
	}

	err := mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		settings.Rules = text

		return nil
	})
	if errors.Is(err, ErrNotConfigured) {
		_, err = ctx.Reply("Please use the rules set command to change the rules message")
		if err != nil {
			return err
		}

		return bot.ErrNoReply
	}

	return err
}

func (mod *module) commandRole(ctx *router.Context) error {
	name := ctx.Rest(2)
	if name == "" {
		return ErrInvalidArgumentNumber
	}

	err := mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		roles, err := mod.config.Session.GuildRoles(ctx.Message.GuildID)
		if err != nil {
			return err
		}

		for _, r := range roles {
			if r.Name == name {
				settings.Role = name

				return nil
			}
		}

		return fmt.Errorf("%w: %s", ErrUnknownRole, name)
	})
	if !errors.Is(err, ErrUnknownRole) {
		return err
	}

	_, rerr := ctx.Reply(fmt.Sprintf("The %s role does not exist, make sure it's spelled correctly and exists!", name))
	if rerr != nil {
		return rerr
	}

	return fmt.Errorf("%w: %w", bot.ErrNoReply, err)
}

func (mod *module) commandColor(ctx *router.Context) error {
	raw := ctx.Args.Get(2)

	return mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		if raw == "" {
			settings.Color = ""

			return nil
		}

		if !strings.HasPrefix(raw, "#") {
			raw = "#" + raw
		}

		c, err := colorful.Hex(raw)
		if err != nil {
			return ErrInvalidColor
		}

		settings.Color = c.Hex()

		return nil
	})
}

func (mod *module) commandShow(ctx *router.Context) error {
	settings, err := mod.load(ctx.Message.GuildID)
	if err != nil {
		return err
	}

	role := settings.Role
	if role == "" {
		role = "(none)"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Rules",
		Description: settings.Rules,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: "<#" + settings.Channel + ">", Inline: true},
			{Name: "Role", Value: role, Inline: true},
		},
	}

	if settings.Color != "" {
		embed.Color, _ = embedColor(settings.Color)
	}

	err = ctx.ReplyEmbedCustom(embed)
	if err != nil {
		return err
	}

	return bot.ErrNoReply
}

func embedColor(hex string) (int, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, err
	}

	r, g, b := c.RGB255()

	return int(r)<<16 | int(g)<<8 | int(b), nil
}
