package activity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/router"
)

var (
	// ErrInvalidUnit is returned for unknown time units
	ErrInvalidUnit = errors.New("invalid time unit")
	// ErrInvalidQuantity is returned for non-positive time quantity
	ErrInvalidQuantity = errors.New("non-positive time quantity")
	// ErrForeignServer is returned when non-owner targets another server
	ErrForeignServer = errors.New("only bot owner can manage other servers")
)

var notices = map[error]string{
	ErrInvalidUnit:     "Invalid time unit. Choose minutes/hours/days/weeks/month",
	ErrInvalidQuantity: "Quantity must not be 0 or negative.",
}

var units = map[string]int64{
	"minute": 60,
	"hour":   3600,
	"day":    86400,
	"week":   604800,
	"month":  2592000,
}

// ParseDuration converts quantity of units into seconds
func ParseDuration(quantity, unit string) (int64, error) {
	unit = strings.TrimSuffix(strings.ToLower(unit), "s")

	mult, ok := units[unit]
	if !ok {
		return 0, ErrInvalidUnit
	}

	n, err := strconv.ParseInt(quantity, 10, 64)
	if err != nil || n < 1 {
		return 0, ErrInvalidQuantity
	}

	return n * mult, nil
}

// ToggleRole flips presence of name in checked roles, keeping everyone role exclusive with
// specific ones. Returned notes describe taken branches.
func ToggleRole(roles []string, name string) (res, notes []string) {
	found := false

	for _, r := range roles {
		if r == name {
			found = true
			continue
		}

		res = append(res, r)
	}

	if found {
		notes = append(notes, fmt.Sprintf("Now ignoring %s!", name))
	} else {
		res = append(res, name)
		notes = append(notes, fmt.Sprintf("Now checking %s!", name))
	}

	if len(res) == 0 {
		res = append(res, bot.EveryoneRole)
		notes = append(notes, "Now checking everyone!")
	}

	if len(res) > 1 {
		specific := res[:0]

		for _, r := range res {
			if r != bot.EveryoneRole {
				specific = append(specific, r)
			}
		}

		res = specific
	}

	return res, notes
}

// notConfigured replies with not setup notice when err says so
func notConfigured(ctx *router.Context, err error) error {
	if !errors.Is(err, ErrNotConfigured) {
		return err
	}

	_, err = ctx.Reply(notSetup)
	if err != nil {
		return err
	}

	return bot.ErrNoReply
}

// refuse replies with notice for err, marking err as already replied to
func refuse(ctx *router.Context, notice string, err error) error {
	_, rerr := ctx.Reply(notice)
	if rerr != nil {
		return rerr
	}

	return fmt.Errorf("%w: %w", bot.ErrNoReply, err)
}

// target returns server id given in args at index i, defaulting to current server
func (mod *module) target(ctx *router.Context, i int) (string, error) {
	guildID := ctx.Args.Get(i)
	if guildID == "" || guildID == ctx.Message.GuildID {
		return ctx.Message.GuildID, nil
	}

	if ctx.Message.Author == nil || !mod.config.IsOwner(ctx.Message.Author.ID) {
		return "", ErrForeignServer
	}

	return guildID, nil
}

func (mod *module) commandList(ctx *router.Context) error {
	settings, err := mod.load(mod.ctx, ctx.Message.GuildID)
	if err != nil {
		return notConfigured(ctx, err)
	}

	return ctx.ReplyEmbed("```" + strings.Join(settings.CheckRoles, ", ") + "```")
}

func (mod *module) commandRemove(ctx *router.Context) error {
	guildID, err := mod.target(ctx, 2)
	if err != nil {
		return err
	}

	mod.m.Lock()
	err = mod.config.Store.RecordDelete(mod.ctx, Scope, guildID)

	if err == nil {
		err = mod.config.Store.ActivityDrop(mod.ctx, guildID)
	}
	mod.m.Unlock()

	if err != nil {
		return err
	}

	name := guildID

	if guild, gerr := mod.config.Session.Guild(guildID); gerr == nil {
		name = guild.Name
	}

	_, err = ctx.Reply(fmt.Sprintf("Done! No more activity checking in %s!", name))

	return err
}

func (mod *module) commandRole(ctx *router.Context) error {
	ref := ctx.Rest(2)
	if ref == "" {
		return ErrInvalidArgumentNumber
	}

	role, err := bot.ResolveRole(mod.config.Session, ctx.Message.GuildID, ref)
	if err != nil {
		return err
	}

	var notes []string

	err = mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		settings.CheckRoles, notes = ToggleRole(settings.CheckRoles, role.Name)

		return nil
	})
	if err != nil {
		return notConfigured(ctx, err)
	}

	_, err = ctx.Reply(strings.Join(notes, "\n"))

	return err
}

func (mod *module) commandInvite(ctx *router.Context) error {
	var invite bool

	err := mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		settings.Invite = !settings.Invite
		invite = settings.Invite

		return nil
	})
	if err != nil {
		return notConfigured(ctx, err)
	}

	if invite {
		_, err = ctx.Reply("Sending invite links to kicked users!")
	} else {
		_, err = ctx.Reply("No longer sending invite links!")
	}

	return err
}

func (mod *module) commandRefresh(ctx *router.Context) error {
	guildID, err := mod.target(ctx, 3)
	if err != nil {
		return err
	}

	mod.m.Lock()
	defer mod.m.Unlock()

	_, err = mod.load(mod.ctx, guildID)
	if err != nil {
		return notConfigured(ctx, err)
	}

	err = mod.seed(guildID)
	if err != nil {
		return err
	}

	_, err = ctx.Reply("The list has been refreshed!")

	return err
}

func (mod *module) commandTime(ctx *router.Context) error {
	if len(ctx.Args) < 4 {
		return ErrInvalidArgumentNumber
	}

	seconds, err := ParseDuration(ctx.Args.Get(2), ctx.Args.Get(3))
	if notice, ok := notices[err]; ok {
		return refuse(ctx, notice, err)
	}

	err = mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		settings.Time = seconds

		return nil
	})
	if err != nil {
		return notConfigured(ctx, err)
	}

	_, err = ctx.Reply(fmt.Sprintf("Okay, setting the server time check to %d", seconds))

	return err
}

func (mod *module) commandChannel(ctx *router.Context) error {
	channelID := ctx.Message.ChannelID

	if ref := ctx.Args.Get(2); ref != "" {
		channel, err := bot.ResolveChannel(mod.config.Session, ctx.Message.GuildID, ref)
		if err != nil {
			return err
		}

		channelID = channel.ID
	}

	err := mod.update(ctx.Message.GuildID, func(settings *Settings) error {
		settings.Channel = channelID

		return nil
	})

	return notConfigured(ctx, err)
}

func (mod *module) commandSet(ctx *router.Context) error {
	guildID := ctx.Message.GuildID
	channelID := ctx.Message.ChannelID
	roleName := bot.EveryoneRole

	if ref := ctx.Args.Get(2); ref != "" {
		channel, err := bot.ResolveChannel(mod.config.Session, guildID, ref)
		if err != nil {
			return err
		}

		channelID = channel.ID
	}

	if ref := ctx.Rest(3); ref != "" {
		role, err := bot.ResolveRole(mod.config.Session, guildID, ref)
		if err != nil {
			return err
		}

		roleName = role.Name
	}

	mod.m.Lock()
	defer mod.m.Unlock()

	_, err := mod.load(mod.ctx, guildID)

	switch {
	case err == nil:
		_, err = ctx.Reply("This server is already checking for activity!")
		if err != nil {
			return err
		}

		return bot.ErrNoReply
	case !errors.Is(err, ErrNotConfigured):
		return err
	}

	err = mod.seed(guildID)
	if err != nil {
		return err
	}

	err = mod.config.Store.RecordPut(mod.ctx, Scope, guildID, &Settings{
		Channel:    channelID,
		CheckRoles: []string{roleName},
		Time:       DefaultThreshold,
		Invite:     true,
	})
	if err != nil {
		return err
	}

	_, err = ctx.Reply(fmt.Sprintf("Sending activity check messages to <#%s>", channelID))

	return err
}
