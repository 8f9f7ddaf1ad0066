package activity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eientei/doorman/discordbot/bot"
)

const emojiConfirm = "\u2611\ufe0f"

func (mod *module) run(ctx context.Context) {
	interval := mod.config.Config.Private.Activity.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		mod.sweep(ctx)
	}
}

// sweep checks activity of members on every registered server
func (mod *module) sweep(ctx context.Context) {
	log := mod.config.Log.WithField("run", uuid.New().String())

	guilds, err := mod.config.Store.RecordGuilds(ctx, Scope)
	if err != nil {
		log.WithError(err).Error("Listing activity servers")

		return
	}

	for _, guildID := range guilds {
		if ctx.Err() != nil {
			return
		}

		err = mod.sweepGuild(ctx, log.WithField("guild", guildID), guildID)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("guild", guildID).Error("Checking activity")
		}
	}
}

func (mod *module) sweepGuild(ctx context.Context, log *logrus.Entry, guildID string) error {
	settings, err := mod.load(ctx, guildID)
	if errors.Is(err, ErrNotConfigured) {
		return nil
	}

	if err != nil {
		return err
	}

	guild, err := mod.config.Session.Guild(guildID)
	if err != nil {
		return err
	}

	roles, err := bot.GuildRoleMap(mod.config.Session, guildID)
	if err != nil {
		return err
	}

	seen, err := mod.config.Store.ActivityList(ctx, guildID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(seen))

	for id := range seen {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	now := mod.now()

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		member, err := mod.member(guildID, id)
		if bot.IsStatus(err, http.StatusNotFound) {
			err = mod.config.Store.ActivityForget(ctx, guildID, id)
		}

		if err != nil {
			log.WithError(err).WithField("member", id).Error("Loading member")

			continue
		}

		if member == nil || !mod.checked(settings, guild, member, roles) {
			continue
		}

		if now.Sub(seen[id]) <= settings.Threshold() {
			continue
		}

		err = mod.confirm(ctx, log.WithField("member", id), settings, guildID, id)
		if errors.Is(err, context.Canceled) {
			return err
		}

		if err != nil {
			log.WithError(err).WithField("member", id).Error("Confirming activity")
		}
	}

	return nil
}

// member returns guild member from gateway state, falling back to REST on a miss
func (mod *module) member(guildID, userID string) (*discordgo.Member, error) {
	if dg := mod.config.Discord; dg != nil && dg.State != nil {
		if member, err := dg.State.Member(guildID, userID); err == nil {
			return member, nil
		}
	}

	return mod.config.Session.GuildMember(guildID, userID)
}

// checked returns true if member is subject to activity checks
func (mod *module) checked(
	settings *Settings,
	guild *discordgo.Guild,
	member *discordgo.Member,
	roles map[string]*discordgo.Role,
) bool {
	if member.User == nil || member.User.Bot {
		return false
	}

	if member.User.ID == guild.OwnerID || mod.config.IsOwner(member.User.ID) {
		return false
	}

	for _, name := range bot.MemberRoleNames(member, roles) {
		for _, r := range settings.CheckRoles {
			if r == name {
				return true
			}
		}
	}

	return false
}

// confirm asks idle member to react within grace period, removing them otherwise
func (mod *module) confirm(ctx context.Context, log *logrus.Entry, settings *Settings, guildID, userID string) error {
	grace := mod.config.Config.Private.Activity.Grace
	session := mod.config.Session

	msg, err := session.ChannelMessageSend(settings.Channel, fmt.Sprintf(
		"%s you haven't talked in a while! you have %d seconds to react to this message to stay!",
		bot.Mention(userID),
		int(grace.Seconds()),
	))
	if err != nil {
		return err
	}

	pending := mod.config.Reactions.Expect(msg.ID, userID, emojiConfirm)

	err = session.MessageReactionAdd(msg.ChannelID, msg.ID, emojiConfirm)
	if err != nil {
		pending.Cancel()

		return err
	}

	waitctx, cancel := context.WithTimeout(ctx, grace)
	_, err = pending.Wait(waitctx)
	cancel()

	if err == nil {
		_, err = session.ChannelMessageSend(settings.Channel, "Good, you decided to stay!")
		if err != nil {
			log.WithError(err).Warn("Sending confirmation")
		}

		_, err = mod.load(ctx, guildID)
		if errors.Is(err, ErrNotConfigured) {
			return nil
		}

		if err != nil {
			return err
		}

		return mod.config.Store.ActivityTouch(ctx, guildID, userID, mod.now())
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	_, err = session.ChannelMessageSend(settings.Channel, fmt.Sprintf("Goodbye %s!", bot.Mention(userID)))
	if err != nil {
		log.WithError(err).Warn("Sending goodbye")
	}

	if settings.Invite {
		mod.invite(log, settings, userID)
	}

	err = session.GuildMemberDelete(guildID, userID)
	if err != nil {
		return err
	}

	log.Info("Removed inactive member")

	return mod.config.Store.ActivityForget(ctx, guildID, userID)
}

// invite sends removed member an invite back to the server
func (mod *module) invite(log *logrus.Entry, settings *Settings, userID string) {
	session := mod.config.Session

	inv, err := session.ChannelInviteCreate(settings.Channel, discordgo.Invite{Unique: false})
	if err != nil {
		log.WithError(err).Error("Creating invite")

		return
	}

	channel, err := session.UserChannelCreate(userID)
	if err == nil {
		_, err = session.ChannelMessageSend(channel.ID, "https://discord.gg/"+inv.Code)
	}

	if bot.IsStatus(err, http.StatusForbidden, http.StatusNotFound) {
		_, err = session.ChannelMessageSend(settings.Channel, "RIP")
	}

	if err != nil {
		log.WithError(err).Debug("Sending invite")
	}
}
