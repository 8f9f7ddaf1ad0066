// Package router provides command router
package router

import (
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of discord session used for replies
type Session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Args provide abstraction for getting arguments
type Args []string

// Get returns bound-safe argument by index
func (args Args) Get(i int) string {
	if len(args) <= i {
		return ""
	}

	return args[i]
}

// Join joins arguments starting with given index
func (args Args) Join(i int) string {
	if len(args) <= i {
		return ""
	}

	return strings.Join(args[i:], " ")
}

// GroupSorterFunc provides sorting for groups
type GroupSorterFunc func(a, b *Group) bool

// RouteSorterFunc provides sorting for routes
type RouteSorterFunc func(a, b *Route) bool

// MatcherFunc implements matching message, returning number of matched words or zero
type MatcherFunc func(raw string) int

// MiddlewareFunc implements command wrapping
type MiddlewareFunc func(handler HandlerFunc) HandlerFunc

// HandlerFunc implements command execution
type HandlerFunc func(ctx *Context) error

// Context simplifies request handling
type Context struct {
	Session Session
	Message *discordgo.Message
	Route   *Route
	Args    Args
	Raw     string
}

// Reply keeps track of user requests and bot replies
type Reply struct {
	Request  *discordgo.Message
	Response *discordgo.Message
}

// Rest returns raw command text following first n words, preserving whitespace
func (ctx *Context) Rest(n int) string {
	raw := strings.TrimLeft(ctx.Raw, " \t\n")

	for i := 0; i < n && raw != ""; i++ {
		end := strings.IndexAny(raw, " \t\n")
		if end < 0 {
			return ""
		}

		raw = strings.TrimLeft(raw[end:], " \t\n")
	}

	return strings.TrimSpace(raw)
}

// React reacts to original message with emoji
func (ctx *Context) React(emoji string) (err error) {
	err = ctx.Session.MessageReactionAdd(ctx.Message.ChannelID, ctx.Message.ID, emoji)

	return
}

func (ctx *Context) track(msg *discordgo.Message) {
	ctx.Route.m.Lock()
	ctx.Route.Replies[msg.ID] = &Reply{
		Request:  ctx.Message,
		Response: msg,
	}
	ctx.Route.m.Unlock()
}

// ReplyEmbed replies to original message with embed
func (ctx *Context) ReplyEmbed(desc string) (err error) {
	return ctx.ReplyEmbedCustom(&discordgo.MessageEmbed{
		Description: desc,
	})
}

// ReplyEmbedCustom replies to original message with custom embed
func (ctx *Context) ReplyEmbedCustom(embed *discordgo.MessageEmbed) (err error) {
	var msg *discordgo.Message

	msg, err = ctx.Session.ChannelMessageSendEmbed(ctx.Message.ChannelID, embed)
	if err != nil {
		return
	}

	ctx.track(msg)

	return
}

// Reply replies to original message
func (ctx *Context) Reply(desc string) (msg *discordgo.Message, err error) {
	msg, err = ctx.Session.ChannelMessageSend(ctx.Message.ChannelID, desc)
	if err != nil {
		return
	}

	ctx.track(msg)

	return
}

// NewRouter returns new router instance
func NewRouter() *Router {
	return &Router{
		Routes: make(map[string]*Route),
		GroupSorter: func(a, b *Group) bool {
			return a.Name >= b.Name
		},
		DefaultRouteSorter: func(a, b *Route) bool {
			return a.Name >= b.Name
		},
	}
}

// Route describes command route
type Route struct {
	Router      *Router
	Name        string
	Description string
	Matcher     MatcherFunc
	Handler     HandlerFunc
	Baked       HandlerFunc
	Data        map[string]interface{}
	Replies     map[string]*Reply
	Middleware  []MiddlewareFunc
	Groups      []*Group
	m           sync.Mutex
}

// Set sets route config value
func (route *Route) Set(k string, v interface{}) *Route {
	route.Data[k] = v

	return route
}

// Get returns route (or any of parent groups) config value
func (route *Route) Get(k string) interface{} {
	if v, ok := route.Data[k]; ok {
		return v
	}

	for _, g := range route.Groups {
		if v, ok := g.Data[k]; ok {
			return v
		}
	}

	return nil
}

// TakeReplies returns and forgets replies tracked for given request
func (route *Route) TakeReplies(request *discordgo.Message) (replies []*Reply) {
	route.m.Lock()
	defer route.m.Unlock()

	for k, r := range route.Replies {
		if r.Request == request {
			replies = append(replies, r)

			delete(route.Replies, k)
		}
	}

	return
}
