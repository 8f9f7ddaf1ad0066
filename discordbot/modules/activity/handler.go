package activity

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func (mod *module) handlerMessageCreate(_ *discordgo.Session, messageCreate *discordgo.MessageCreate) {
	mod.observe(messageCreate.Message)
}

func (mod *module) handlerMemberRemove(_ *discordgo.Session, memberRemove *discordgo.GuildMemberRemove) {
	if memberRemove.Member == nil || memberRemove.User == nil {
		return
	}

	err := mod.config.Store.ActivityForget(mod.ctx, memberRemove.GuildID, memberRemove.User.ID)
	if err != nil {
		mod.config.Log.WithError(err).WithFields(logrus.Fields{
			"guild":  memberRemove.GuildID,
			"member": memberRemove.User.ID,
		}).Error("Forgetting member activity")
	}
}

// observe stamps message author as seen on registered servers
func (mod *module) observe(msg *discordgo.Message) {
	if msg == nil || msg.GuildID == "" || msg.Author == nil {
		return
	}

	_, err := mod.load(mod.ctx, msg.GuildID)
	if errors.Is(err, ErrNotConfigured) {
		return
	}

	if err == nil {
		err = mod.config.Store.ActivityTouch(mod.ctx, msg.GuildID, msg.Author.ID, mod.now())
	}

	if err != nil {
		mod.config.Log.WithError(err).WithFields(logrus.Fields{
			"guild":  msg.GuildID,
			"member": msg.Author.ID,
		}).Error("Recording activity")
	}
}
