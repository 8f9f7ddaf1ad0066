// Package bot provides main bot implementation
package bot

import (
	"errors"
	"sync"

	"github.com/eientei/doorman/discordbot/config"
	"github.com/eientei/doorman/discordbot/model"
	"github.com/eientei/doorman/discordbot/reaction"
	"github.com/eientei/doorman/discordbot/router"

	"github.com/bwmarrin/discordgo"
	redis "github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"
)

// ErrNoReply special error value to avoid auto-reply
var ErrNoReply = errors.New("noreply")

// Session is the part of discord session used by modules
type Session interface {
	router.Session
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembers(guildID, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberDelete(guildID, userID string, options ...discordgo.RequestOption) error
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelInviteCreate(
		channelID string,
		i discordgo.Invite,
		options ...discordgo.RequestOption,
	) (*discordgo.Invite, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Options provide configuration options for bot
type Options struct {
	Discord *discordgo.Session
	Client  *redis.Client
	Store   model.Store
	Config  *config.Root
	Log     *logrus.Logger
	Modules []Module
}

// Configuration store configuration for bot
type Configuration struct {
	Discord    *discordgo.Session
	Session    Session
	Client     *redis.Client
	Config     *config.Root
	Log        *logrus.Logger
	Router     *router.Router
	Repository *model.Repository
	Store      model.Store
	Reactions  *reaction.Waiter
	Modules    []Module
	reload     func()
}

// AddHandler registers discord event handler, if there is a live session
func (conf *Configuration) AddHandler(handler interface{}) {
	if conf.Discord != nil {
		conf.Discord.AddHandler(handler)
	}
}

// BotUserID returns user id of the bot itself
func (conf *Configuration) BotUserID() string {
	if conf.Discord != nil && conf.Discord.State != nil && conf.Discord.State.User != nil {
		return conf.Discord.State.User.ID
	}

	return ""
}

// IsOwner returns true if user is configured bot owner
func (conf *Configuration) IsOwner(userID string) bool {
	return conf.Config.Private.Owner != "" && conf.Config.Private.Owner == userID
}

func containsString(s string, ss ...string) bool {
	for _, ri := range ss {
		if ri == s {
			return true
		}
	}

	return false
}

// AuthorHasPermission returns true if message author is owner, administrator, has matching
// permissions or roles
func (conf *Configuration) AuthorHasPermission(
	msg *discordgo.Message,
	permissions int64,
	roleIDs, roleNames []string,
) bool {
	if msg.Author == nil {
		return false
	}

	return conf.HasPermission(msg.Member, msg.GuildID, msg.Author.ID, permissions, roleIDs, roleNames)
}

// HasPermission returns true if user is owner, administrator, has matching permissions or roles
func (conf *Configuration) HasPermission(
	member *discordgo.Member,
	guildID, userID string,
	permissions int64,
	roleIDs, roleNames []string,
) bool {
	if conf.IsOwner(userID) {
		return true
	}

	guild, _ := conf.Session.Guild(guildID)
	if guild != nil && guild.OwnerID == userID {
		return true
	}

	if srv := conf.Config.Server(guildID); srv != nil {
		roleNames = append(append([]string{}, roleNames...), srv.Moderators...)
	}

	var err error

	if member == nil {
		member, err = conf.Session.GuildMember(guildID, userID)
		if err != nil {
			conf.Log.WithError(err).Error("Loading member", guildID, userID)

			return false
		}
	}

	roles, err := GuildRoleMap(conf.Session, guildID)
	if err != nil {
		conf.Log.WithError(err).Error("Loading roles", guildID)

		return false
	}

	for _, r := range member.Roles {
		role, ok := roles[r]
		if !ok {
			continue
		}

		if evalPermissions(role, permissions, roleIDs, roleNames) {
			return true
		}
	}

	return false
}

func evalPermissions(role *discordgo.Role, permissions int64, roleIDs, roleNames []string) bool {
	if role.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	if permissions != 0 && role.Permissions&permissions != 0 {
		return true
	}

	return containsString(role.ID, roleIDs...) || containsString(role.Name, roleNames...)
}

// Reload provides config reloading interface to modules
func (conf *Configuration) Reload() {
	if conf.reload != nil {
		conf.reload()
	}
}

// Module interface incapsulates methods for distinct functionality
type Module interface {
	Initialize(bot *Configuration) error
	Configure(bot *Configuration, server *discordgo.Guild)
	Shutdown(bot *Configuration)
}

// NewBot provides new instance of bot
func NewBot(options Options) (*Bot, error) {
	if options.Log == nil {
		options.Log = logrus.New()
	}

	repository := model.NewRepository(options.Client)

	if options.Store == nil {
		options.Store = repository
	}

	bot := &Bot{
		Configuration: Configuration{
			Discord:    options.Discord,
			Session:    options.Discord,
			Client:     options.Client,
			Config:     options.Config,
			Log:        options.Log,
			Router:     router.NewRouter(),
			Repository: repository,
			Store:      options.Store,
			Reactions:  reaction.NewWaiter(),
			Modules:    options.Modules,
		},
		m:       &sync.RWMutex{},
		servers: make(map[string]*server),
	}

	bot.Configuration.reload = bot.Reload

	for _, m := range bot.Modules {
		err := m.Initialize(&bot.Configuration)
		if err != nil {
			return nil, err
		}
	}

	bot.Discord.AddHandler(bot.handlerGuildCreate)
	bot.Discord.AddHandler(bot.handlerMessageCreate)
	bot.Discord.AddHandler(bot.Reactions.HandlerReactionAdd)

	return bot, nil
}
