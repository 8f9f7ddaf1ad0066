// Package cleanup provides bot module for automated removal of bot replies and prompts
package cleanup

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/router"
)

const (
	// Scope is configuration scope of cleanup keys
	Scope = "cleanup"
	// KeyReplies holds delay before command replies are removed
	KeyReplies = "delay"
	// KeyPrompts holds delay before rules and activity prompts are removed
	KeyPrompts = "prompts"
)

// Delay returns configured cleanup delay for guild, zero when disabled
func Delay(config *bot.Configuration, guildID, key string) (time.Duration, error) {
	s, err := config.Repository.ConfigGet(guildID, Scope, key)
	if err != nil || s == "" {
		return 0, err
	}

	return time.ParseDuration(s)
}

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
	config *bot.Configuration
	cancel context.CancelFunc
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config
	config.Router.AppendMiddleware(mod.middlewareCleanup)

	var ctx context.Context

	ctx, mod.cancel = context.WithCancel(context.Background())

	go mod.start(ctx)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {
	mod.cancel()
}

func (mod *module) middlewareCleanup(handler router.HandlerFunc) router.HandlerFunc {
	return func(ctx *router.Context) error {
		origerr := handler(ctx)

		replies := ctx.Route.TakeReplies(ctx.Message)
		if len(replies) == 0 {
			return origerr
		}

		delay, err := Delay(mod.config, ctx.Message.GuildID, KeyReplies)
		if err != nil {
			mod.config.Log.WithError(err).WithField("guild", ctx.Message.GuildID).Error("Getting cleanup delay")

			return origerr
		}

		if delay <= 0 {
			return origerr
		}

		msgs := make([]*discordgo.Message, 0, len(replies)+1)
		for _, r := range replies {
			msgs = append(msgs, r.Response)
		}

		enqueue(mod.config, delay, msgs...)

		return origerr
	}
}
