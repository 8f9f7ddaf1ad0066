// Package reply provides bot module for automated emoji and error replies depending on result of execution
package reply

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/router"
)

const (
	emojiOkButton = "\U0001F197"
	emojiX        = "\u274c"
	colorError    = 0xdd2e44
)

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
	config *bot.Configuration
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config

	config.Router.AppendMiddleware(mod.middlewareReply)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {

}

func (mod *module) middlewareReply(handler router.HandlerFunc) router.HandlerFunc {
	return func(ctx *router.Context) error {
		origerr := handler(ctx)
		if errors.Is(origerr, bot.ErrNoReply) {
			return nil
		}

		if origerr != nil {
			mod.config.Log.WithError(origerr).
				WithField("route", ctx.Route.Name).
				WithField("guild", ctx.Message.GuildID).
				Warn("Executing command returned error")

			err := ctx.React(emojiX)
			if err != nil {
				mod.config.Log.WithError(err).Error("Replying with error status")
				return origerr
			}

			err = ctx.ReplyEmbedCustom(&discordgo.MessageEmbed{
				Description: origerr.Error(),
				Color:       colorError,
			})
			if err != nil {
				mod.config.Log.WithError(err).Error("Replying with error status")
			}

			return origerr
		}

		err := ctx.React(emojiOkButton)
		if err != nil {
			mod.config.Log.WithError(err).Error("Replying with ok status")
		}

		return nil
	}
}
