package bot

import (
	"github.com/eientei/doorman/discordbot/router"

	"github.com/bwmarrin/discordgo"
)

func (bot *Bot) handlerMessageCreate(session *discordgo.Session, messageCreate *discordgo.MessageCreate) {
	if messageCreate.GuildID == "" {
		return
	}

	err := bot.Router.Dispatch(session, bot.prefixes(messageCreate.GuildID), session.State.User.ID, messageCreate.Message)
	if err != nil && err != router.ErrNotMatched {
		bot.Log.WithError(err).WithField("guild", messageCreate.GuildID).Debug("Dispatching command")
	}
}

func (bot *Bot) handlerGuildCreate(_ *discordgo.Session, guildCreate *discordgo.GuildCreate) {
	bot.configure(guildCreate.Guild)

	for _, m := range bot.Modules {
		m.Configure(&bot.Configuration, guildCreate.Guild)
	}
}
