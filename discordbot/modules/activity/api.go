// Package activity provides removal of members who stopped talking on the server
package activity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/model"
	"github.com/eientei/doorman/discordbot/modules/auth"
	"github.com/eientei/doorman/discordbot/modules/help"
)

// Scope is the record scope of activity settings
const Scope = "activity"

// DefaultThreshold is idle time after which members are asked to confirm presence
const DefaultThreshold = 7 * 24 * 60 * 60

const notSetup = "I am not setup to check activity on this server!"

var (
	// ErrNotConfigured is returned when activity checking is not set up on the server
	ErrNotConfigured = errors.New("activity checking is not set up")
	// ErrInvalidArgumentNumber is returned on invalid argument number
	ErrInvalidArgumentNumber = errors.New("invalid argument number, use activity for help")
)

// Settings holds activity checking configuration of a server
type Settings struct {
	Channel    string   `json:"channel"`
	CheckRoles []string `json:"check_roles"`
	Time       int64    `json:"time"`
	Invite     bool     `json:"invite"`
}

// Threshold returns idle threshold as duration
func (settings *Settings) Threshold() time.Duration {
	return time.Duration(settings.Time) * time.Second
}

// New provides module instance
func New() bot.Module {
	return &module{
		now: time.Now,
	}
}

type module struct {
	config *bot.Configuration
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
	done   chan struct{}
	m      sync.Mutex
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config
	mod.ctx, mod.cancel = context.WithCancel(context.Background())

	config.AddHandler(mod.handlerMessageCreate)
	config.AddHandler(mod.handlerMemberRemove)

	group := config.Router.Group("activity").SetDescription("inactive member removal")
	group.Set(auth.RouteConfigKey, &auth.RouteConfig{
		Permissions: discordgo.PermissionKickMembers,
	})

	group.On("activity", "prints activity commands", help.GroupHelp)
	group.On("activity list", "lists checked roles", mod.commandList)
	group.On("activity remove", "[server id] stops activity checking", mod.commandRemove)
	group.On("activity role", "<role> toggles role checking", mod.commandRole)
	group.On("activity invite", "toggles sending invites to kicked members", mod.commandInvite)
	group.On("activity refresh", "[channel] [server id] restarts activity tracking from now", mod.commandRefresh)
	group.On("activity time", "<quantity> <minutes/hours/days/weeks/months> sets idle time", mod.commandTime)
	group.On("activity channel", "[channel] sets channel to post activity checks to", mod.commandChannel)
	group.On("activity set", "[channel] [role] starts activity checking", mod.commandSet)

	mod.done = make(chan struct{})

	go func() {
		defer close(mod.done)

		mod.run(mod.ctx)
	}()

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {
	mod.cancel()
	<-mod.done
}

func (mod *module) load(ctx context.Context, guildID string) (*Settings, error) {
	settings := &Settings{}

	err := mod.config.Store.RecordGet(ctx, Scope, guildID, settings)
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

	settings, err := mod.load(mod.ctx, guildID)
	if err != nil {
		return err
	}

	err = fn(settings)
	if err != nil {
		return err
	}

	return mod.config.Store.RecordPut(mod.ctx, Scope, guildID, settings)
}

// seed marks all current guild members as seen now
func (mod *module) seed(guildID string) error {
	members, err := bot.ListMembers(mod.config.Session, guildID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(members))

	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}

	return mod.config.Store.ActivityReset(mod.ctx, guildID, ids, mod.now())
}
