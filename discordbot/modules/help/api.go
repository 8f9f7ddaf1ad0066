// Package help provides bot module for command help message
package help

import (
	"strings"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/router"

	"github.com/bwmarrin/discordgo"
)

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
}

func (mod *module) Initialize(config *bot.Configuration) error {
	group := config.Router.Group("help").SetDescription("help & status")

	group.On("help", "prints help", mod.commandHelp)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {

}

func (mod *module) commandHelp(ctx *router.Context) error {
	return ctx.ReplyEmbed(Render(ctx.Route.Router.Groups...))
}

// Render renders route listing of given groups
func Render(groups ...*router.Group) string {
	max := 0

	for _, g := range groups {
		for _, v := range g.Routes {
			if len(v.Name) > max {
				max = len(v.Name)
			}
		}
	}

	buf := &strings.Builder{}

	buf.WriteString("```autohotkey\n")

	for _, g := range groups {
		_, _ = buf.WriteString("\n==" + strings.ToUpper(g.Name) + "==")

		if len(g.Description) > 0 {
			_, _ = buf.WriteString(" ")
			_, _ = buf.WriteString(g.Description)
		}

		_, _ = buf.WriteString("\n")

		for _, v := range g.Routes {
			_, _ = buf.WriteString(strings.Repeat(" ", max-len(v.Name)))
			_, _ = buf.WriteString(v.Name)
			_, _ = buf.WriteString(": ")
			_, _ = buf.WriteString(v.Description)
			buf.WriteString("\n")
		}
	}

	buf.WriteString("```")

	return buf.String()
}

// GroupHelp returns handler replying with help of the route group
func GroupHelp(ctx *router.Context) error {
	err := ctx.ReplyEmbed(Render(ctx.Route.Groups...))
	if err != nil {
		return err
	}

	return bot.ErrNoReply
}
