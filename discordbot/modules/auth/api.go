// Package auth provides bot module middleware for authentication on bot commands
package auth

import (
	"errors"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/router"

	"github.com/bwmarrin/discordgo"
)

// RouteConfigKey is used in route/group data configuration
const RouteConfigKey = "auth"

var (
	// ErrNotAuthorized is returned when user is not authorized to execute this command
	ErrNotAuthorized = errors.New("not authorized")
)

// RouteConfig holds authentication requirements for given route or route group
type RouteConfig struct {
	RoleIDs     []string
	RoleNames   []string
	Permissions int64
}

// New provides module instance
func New() bot.Module {
	return &module{}
}

type module struct {
	config *bot.Configuration
}

func (mod *module) Initialize(config *bot.Configuration) error {
	mod.config = config
	config.Router.AppendMiddleware(mod.middlewareAuth)

	return nil
}

func (mod *module) Configure(*bot.Configuration, *discordgo.Guild) {

}

func (mod *module) Shutdown(*bot.Configuration) {

}

func routeConfig(route *router.Route) *RouteConfig {
	switch v := route.Get(RouteConfigKey).(type) {
	case *RouteConfig:
		return v
	case RouteConfig:
		return &v
	default:
		return nil
	}
}

func (mod *module) middlewareAuth(handler router.HandlerFunc) router.HandlerFunc {
	return func(ctx *router.Context) error {
		auth := routeConfig(ctx.Route)
		if auth == nil {
			return handler(ctx)
		}

		if mod.config.AuthorHasPermission(ctx.Message, auth.Permissions, auth.RoleIDs, auth.RoleNames) {
			return handler(ctx)
		}

		mod.config.Log.
			WithField("route", ctx.Route.Name).
			WithField("guild", ctx.Message.GuildID).
			WithField("user", ctx.Message.Author.ID).
			Info("Unauthorized command")

		return ErrNotAuthorized
	}
}
