package router

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sent      []string
	reactions []string
}

func (s *fakeSession) ChannelMessageSend(
	channelID, content string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.sent = append(s.sent, content)

	return &discordgo.Message{ID: "r" + content, ChannelID: channelID, Content: content}, nil
}

func (s *fakeSession) ChannelMessageSendEmbed(
	channelID string,
	embed *discordgo.MessageEmbed,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.sent = append(s.sent, embed.Description)

	return &discordgo.Message{ID: "e" + embed.Description, ChannelID: channelID}, nil
}

func (s *fakeSession) MessageReactionAdd(_, _, emojiID string, _ ...discordgo.RequestOption) error {
	s.reactions = append(s.reactions, emojiID)

	return nil
}

func message(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m",
		ChannelID: "c",
		GuildID:   "g",
		Content:   content,
		Author:    &discordgo.User{ID: "u"},
	}
}

func TestDispatchLongestMatch(t *testing.T) {
	r := NewRouter()
	group := r.Group("activity")

	var called string

	var args Args

	group.On("activity", "help", func(ctx *Context) error {
		called = "activity"
		return nil
	})
	group.On("activity time", "set time", func(ctx *Context) error {
		called = "activity time"
		args = ctx.Args

		return nil
	})
	group.On("activity set", "register", func(ctx *Context) error {
		called = "activity set"
		return nil
	})

	s := &fakeSession{}
	prefixes := map[string]string{"": "!"}

	require.NoError(t, r.Dispatch(s, prefixes, "bot", message("!activity time 2 weeks")))
	assert.Equal(t, "activity time", called)
	assert.Equal(t, Args{"activity", "time", "2", "weeks"}, args)
	assert.Equal(t, "weeks", args.Get(3))
	assert.Equal(t, "", args.Get(4))
	assert.Equal(t, "2 weeks", args.Join(2))

	require.NoError(t, r.Dispatch(s, prefixes, "bot", message("!activity")))
	assert.Equal(t, "activity", called)

	require.NoError(t, r.Dispatch(s, prefixes, "bot", message("!ACTIVITY SET")))
	assert.Equal(t, "activity set", called)

	assert.Equal(t, ErrNotMatched, r.Dispatch(s, prefixes, "bot", message("!unknown")))
	assert.Equal(t, ErrNotMatched, r.Dispatch(s, prefixes, "bot", message("activity set")))
}

func TestDispatchIgnoresSelfAndBots(t *testing.T) {
	r := NewRouter()

	called := 0

	r.On("rules", "rules set", "set", func(ctx *Context) error {
		called++
		return nil
	})

	s := &fakeSession{}
	prefixes := map[string]string{"": "!"}

	msg := message("!rules set")
	msg.Author.ID = "bot"
	require.NoError(t, r.Dispatch(s, prefixes, "bot", msg))

	msg = message("!rules set")
	msg.Author.Bot = true
	require.NoError(t, r.Dispatch(s, prefixes, "bot", msg))

	assert.Equal(t, 0, called)
}

func TestContextRest(t *testing.T) {
	r := NewRouter()

	var rest string

	r.On("rules", "rules change", "change", func(ctx *Context) error {
		rest = ctx.Rest(2)
		return nil
	})

	s := &fakeSession{}

	require.NoError(t, r.Dispatch(s, map[string]string{"": "!"}, "bot",
		message("!rules  change Welcome, \"friend\"!\n1. Be nice\n2. No spam")))
	assert.Equal(t, "Welcome, \"friend\"!\n1. Be nice\n2. No spam", rest)

	ctx := &Context{Raw: "rules change"}
	assert.Equal(t, "", ctx.Rest(2))
}

func TestMiddlewareOrderAndRouteData(t *testing.T) {
	r := NewRouter()

	var trace []string

	mw := func(name string) MiddlewareFunc {
		return func(handler HandlerFunc) HandlerFunc {
			return func(ctx *Context) error {
				trace = append(trace, name)
				return handler(ctx)
			}
		}
	}

	errFailed := errors.New("failed")

	r.AppendMiddleware(mw("second"))
	r.PrependMiddleware(mw("first"))

	group := r.Group("g").Set("key", "group")
	group.Middleware = append(group.Middleware, mw("group"))

	route := group.On("cmd", "command", func(ctx *Context) error {
		trace = append(trace, "handler")
		assert.Equal(t, "group", ctx.Route.Get("key"))

		_, err := ctx.Reply("done")
		require.NoError(t, err)

		return errFailed
	})

	s := &fakeSession{}
	msg := message("!cmd")

	assert.Equal(t, errFailed, r.Dispatch(s, map[string]string{"": "!"}, "bot", msg))
	assert.Equal(t, []string{"first", "second", "group", "handler"}, trace)
	assert.Equal(t, []string{"done"}, s.sent)

	replies := route.TakeReplies(msg)
	require.Len(t, replies, 1)
	assert.Equal(t, "done", replies[0].Response.Content)
	assert.Empty(t, route.TakeReplies(msg))
}

func TestGroupPrefixes(t *testing.T) {
	r := NewRouter()

	var called []string

	r.On("help", "help", "help", func(ctx *Context) error {
		called = append(called, "help")
		return nil
	})
	r.On("rules", "rules", "rules", func(ctx *Context) error {
		called = append(called, "rules")
		return nil
	})

	s := &fakeSession{}
	prefixes := map[string]string{"": "!", "help": "?"}

	require.NoError(t, r.Dispatch(s, prefixes, "bot", message("?help")))
	assert.Equal(t, ErrNotMatched, r.Dispatch(s, prefixes, "bot", message("!help")))
	require.NoError(t, r.Dispatch(s, prefixes, "bot", message("!rules")))

	assert.Equal(t, []string{"help", "rules"}, called)
}
