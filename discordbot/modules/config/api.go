// Package config provides bot module for managing per-server configuration
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/modules/auth"
	"github.com/eientei/doorman/discordbot/modules/cleanup"
	"github.com/eientei/doorman/discordbot/router"
)

var (
	// ErrInvalidArgumentNumber is retuned when invalid number of arguments is supplied
	ErrInvalidArgumentNumber = errors.New("invalid argument number")
	// ErrUnknownKey is returned for keys not managed by this module
	ErrUnknownKey = errors.New("unknown key")
)

type key struct {
	validate func(value string) error
	scope    string
	name     string
}

func validateDuration(value string) error {
	_, err := time.ParseDuration(value)

	return err
}

func validatePrefix(value string) error {
	if strings.ContainsAny(value, " \t\n") {
		return errors.New("prefix must not contain whitespace")
	}

	return nil
}

var keys = map[string]key{
	"prefix":          {scope: "global", name: "prefix", validate: validatePrefix},
	"cleanup.replies": {scope: cleanup.Scope, name: cleanup.KeyReplies, validate: validateDuration},
	"cleanup.prompts": {scope: cleanup.Scope, name: cleanup.KeyPrompts, validate: validateDuration},
}

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
	config *bot.Configuration
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config

	group := config.Router.Group("config").SetDescription("server configuration")
	group.Set(auth.RouteConfigKey, &auth.RouteConfig{
		Permissions: discordgo.PermissionAdministrator,
	})

	group.On("config list", "lists config values", mod.configList)
	group.On("config set", "sets config value", mod.configSet)
	group.On("config del", "deletes config value", mod.configDel)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {

}

func lookup(name string) (key, error) {
	k, ok := keys[name]
	if !ok {
		return k, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}

	return k, nil
}

func (mod *module) configSet(ctx *router.Context) error {
	if len(ctx.Args) < 4 {
		return ErrInvalidArgumentNumber
	}

	k, err := lookup(ctx.Args.Get(2))
	if err != nil {
		return err
	}

	value := ctx.Args.Get(3)

	err = k.validate(value)
	if err != nil {
		return err
	}

	err = mod.config.Repository.ConfigSet(ctx.Message.GuildID, k.scope, k.name, value)
	if err != nil {
		return err
	}

	mod.config.Reload()

	return nil
}

func (mod *module) configDel(ctx *router.Context) error {
	if len(ctx.Args) < 3 {
		return ErrInvalidArgumentNumber
	}

	k, err := lookup(ctx.Args.Get(2))
	if err != nil {
		return err
	}

	err = mod.config.Repository.ConfigDel(ctx.Message.GuildID, k.scope, k.name)
	if err != nil {
		return err
	}

	mod.config.Reload()

	return nil
}

func (mod *module) configList(ctx *router.Context) error {
	names := make([]string, 0, len(keys))
	max := 0

	for name := range keys {
		names = append(names, name)

		if len(name) > max {
			max = len(name)
		}
	}

	sort.Strings(names)

	buf := &strings.Builder{}

	buf.WriteString("```\n")

	for _, name := range names {
		k := keys[name]

		v, err := mod.config.Repository.ConfigGet(ctx.Message.GuildID, k.scope, k.name)
		if err != nil {
			return err
		}

		_, _ = buf.WriteString(strings.Repeat(" ", max-len(name)))
		_, _ = buf.WriteString(name)
		_, _ = buf.WriteString(": ")
		_, _ = buf.WriteString(v)
		_, _ = buf.WriteString("\n")
	}

	buf.WriteString("```")

	return ctx.ReplyEmbed(buf.String())
}
