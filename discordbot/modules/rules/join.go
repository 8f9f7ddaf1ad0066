package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/modules/cleanup"
)

func (mod *module) handlerMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || e.Member.User == nil {
		return
	}

	err := mod.greet(mod.ctx, e.Member)
	if err != nil && !errors.Is(err, context.Canceled) {
		mod.config.Log.WithError(err).WithFields(logrus.Fields{
			"guild":  e.GuildID,
			"member": e.User.ID,
		}).Error("Processing rules acceptance")
	}
}

// greet posts rules to joined member and applies their decision
func (mod *module) greet(ctx context.Context, member *discordgo.Member) error {
	settings, err := mod.load(member.GuildID)
	if errors.Is(err, ErrNotConfigured) {
		return nil
	}

	if err != nil {
		return err
	}

	userID := member.User.ID

	mention, err := mod.config.Session.ChannelMessageSend(settings.Channel, bot.Mention(userID))
	if err != nil {
		return err
	}

	var msg *discordgo.Message

	if settings.Color != "" {
		color, _ := embedColor(settings.Color)

		msg, err = mod.config.Session.ChannelMessageSendEmbed(settings.Channel, &discordgo.MessageEmbed{
			Description: settings.Rules,
			Color:       color,
		})
	} else {
		msg, err = mod.config.Session.ChannelMessageSend(settings.Channel, settings.Rules)
	}

	if err != nil {
		return err
	}

	pending := mod.config.Reactions.Expect(msg.ID, userID, emojiYes, emojiNo)

	for _, emoji := range []string{emojiYes, emojiNo} {
		err = mod.config.Session.MessageReactionAdd(msg.ChannelID, msg.ID, emoji)
		if err != nil {
			pending.Cancel()

			return err
		}
	}

	emoji, err := pending.Wait(ctx)
	if err != nil {
		return err
	}

	cleanup.Schedule(mod.config, member.GuildID, mention, msg)

	if emoji == emojiNo {
		return mod.config.Session.GuildMemberDelete(member.GuildID, userID)
	}

	return mod.grant(member.GuildID, userID, settings.Role)
}

func (mod *module) grant(guildID, userID, name string) error {
	if name == "" {
		return nil
	}

	roles, err := mod.config.Session.GuildRoles(guildID)
	if err != nil {
		return err
	}

	for _, r := range roles {
		if r.Name == name {
			return mod.config.Session.GuildMemberRoleAdd(guildID, userID, r.ID)
		}
	}

	return fmt.Errorf("%w: %s", bot.ErrRoleNotFound, name)
}
