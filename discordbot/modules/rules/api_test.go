package rules

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/bot/bottest"
	"github.com/eientei/doorman/discordbot/modules/reply"
)

func setup(t *testing.T) (*bottest.Session, *bot.Configuration, *module, func(content string) error) {
	t.Helper()

	s := bottest.NewSession()
	s.AddGuild("g", "owner")

	conf := bottest.NewConfiguration(t, s)

	mod := New().(*module)
	require.NoError(t, reply.New().Initialize(conf))
	require.NoError(t, mod.Initialize(conf))
	t.Cleanup(func() {
		mod.Shutdown(conf)
	})

	prefixes := map[string]string{"": "!"}
	dispatch := func(content string) error {
		return conf.Router.Dispatch(s, prefixes, "bot", bottest.Command("g", "g", "owner", content))
	}

	return s, conf, mod, dispatch
}

func joined(userID string) *discordgo.Member {
	return &discordgo.Member{GuildID: "g", User: &discordgo.User{ID: userID}}
}

// answer makes member react with given emoji once bot offered both choices
func answer(s *bottest.Session, conf *bot.Configuration, userID, emoji string) {
	s.OnReact = func(r bottest.Reaction) {
		if r.Emoji == emojiNo {
			conf.Reactions.Dispatch(r.MessageID, userID, emoji)
		}
	}
}

func TestSetDefaults(t *testing.T) {
	s, conf, mod, dispatch := setup(t)

	require.NoError(t, dispatch("!rules set"))

	settings, err := mod.load("g")
	require.NoError(t, err)
	assert.Equal(t, &Settings{Rules: DefaultRules, Channel: "g"}, settings)

	s.Guilds["g"].SystemChannelID = ""
	require.NoError(t, conf.Router.Dispatch(s, map[string]string{"": "!"}, "bot",
		bottest.Command("g", "other", "owner", "!rules set")))

	settings, err = mod.load("g")
	require.NoError(t, err)
	assert.Equal(t, "other", settings.Channel)
}

func TestChangeBeforeSet(t *testing.T) {
	s, _, mod, dispatch := setup(t)

	require.NoError(t, dispatch("!rules change be nice"))
	assert.Equal(t, []string{"Please use the rules set command to change the rules message"}, s.Texts("g"))

	_, err := mod.load("g")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestChangeKeepsLines(t *testing.T) {
	_, _, mod, dispatch := setup(t)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules change 1. be nice\n2. no spam"))

	settings, err := mod.load("g")
	require.NoError(t, err)
	assert.Equal(t, "1. be nice\n2. no spam", settings.Rules)
}

func TestRole(t *testing.T) {
	s, _, mod, dispatch := setup(t)
	s.AddRole("g", "r1", "member", 0)

	require.NoError(t, dispatch("!rules set"))

	require.NoError(t, dispatch("!rules role visitor"))

	texts := s.Texts("g")
	require.NotEmpty(t, texts)
	assert.Equal(t, "The visitor role does not exist, make sure it's spelled correctly and exists!", texts[len(texts)-1])

	settings, err := mod.load("g")
	require.NoError(t, err)
	assert.Empty(t, settings.Role)

	require.NoError(t, dispatch("!rules role member"))

	settings, err = mod.load("g")
	require.NoError(t, err)
	assert.Equal(t, "member", settings.Role)
}

func TestChannelAndColor(t *testing.T) {
	s, _, mod, dispatch := setup(t)
	s.AddChannel("g", "11")

	assert.ErrorIs(t, dispatch("!rules channel <#11>"), ErrNotConfigured)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules channel <#11>"))
	assert.ErrorIs(t, dispatch("!rules color nope"), ErrInvalidColor)
	require.NoError(t, dispatch("!rules color 3B8EEA"))

	settings, err := mod.load("g")
	require.NoError(t, err)
	assert.Equal(t, "11", settings.Channel)
	assert.Equal(t, "#3b8eea", settings.Color)

	require.NoError(t, dispatch("!rules color"))

	settings, err = mod.load("g")
	require.NoError(t, err)
	assert.Empty(t, settings.Color)
}

func TestJoinNotConfigured(t *testing.T) {
	s, conf, mod, _ := setup(t)

	require.NoError(t, mod.greet(context.Background(), joined("u1")))
	assert.Empty(t, s.Sent)
	assert.Zero(t, conf.Reactions.Len())
}

func TestJoinDecline(t *testing.T) {
	s, conf, mod, dispatch := setup(t)
	s.AddRole("g", "r1", "member", 0)
	s.AddMember("g", "u1", false)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules role member"))

	answer(s, conf, "u1", emojiNo)
	require.NoError(t, mod.greet(context.Background(), joined("u1")))

	assert.Equal(t, []string{bot.Mention("u1"), DefaultRules}, s.Texts("g"))
	assert.Equal(t, []bottest.Kick{{GuildID: "g", UserID: "u1"}}, s.KickList())
	assert.Empty(t, s.RoleAdds)
}

func TestJoinAccept(t *testing.T) {
	s, conf, mod, dispatch := setup(t)
	s.AddRole("g", "r1", "member", 0)
	s.AddMember("g", "u1", false)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules role member"))

	answer(s, conf, "u1", emojiYes)
	require.NoError(t, mod.greet(context.Background(), joined("u1")))

	texts := s.Texts("g")
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, []string{bot.Mention("u1"), DefaultRules}, texts[len(texts)-2:])

	assert.Equal(t, []bottest.RoleAdd{{GuildID: "g", UserID: "u1", RoleID: "r1"}}, s.RoleAdds)
	assert.Empty(t, s.KickList())
	assert.Zero(t, conf.Reactions.Len())
}

func TestJoinRoleRemoved(t *testing.T) {
	s, conf, mod, dispatch := setup(t)
	s.AddRole("g", "r1", "member", 0)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules role member"))

	s.Roles["g"] = s.Roles["g"][:1]

	answer(s, conf, "u1", emojiYes)
	assert.ErrorIs(t, mod.greet(context.Background(), joined("u1")), bot.ErrRoleNotFound)
	assert.Empty(t, s.RoleAdds)
}

func TestJoinOtherUserIgnored(t *testing.T) {
	s, conf, mod, dispatch := setup(t)

	require.NoError(t, dispatch("!rules set"))

	s.OnReact = func(r bottest.Reaction) {
		if r.Emoji == emojiNo {
			assert.False(t, conf.Reactions.Dispatch(r.MessageID, "u2", emojiNo))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, mod.greet(ctx, joined("u1")), context.Canceled)
	assert.Empty(t, s.KickList())
	assert.Zero(t, conf.Reactions.Len())
}

func TestJoinColoredEmbed(t *testing.T) {
	s, conf, mod, dispatch := setup(t)

	require.NoError(t, dispatch("!rules set"))
	require.NoError(t, dispatch("!rules color #ff0000"))

	answer(s, conf, "u1", emojiYes)
	require.NoError(t, mod.greet(context.Background(), joined("u1")))

	last := s.Sent[len(s.Sent)-1]
	require.Len(t, last.Embeds, 1)
	assert.Equal(t, DefaultRules, last.Embeds[0].Description)
	assert.Equal(t, 0xff0000, last.Embeds[0].Color)
}

func TestJoinAcceptWithoutRole(t *testing.T) {
	s, conf, mod, dispatch := setup(t)
	s.AddMember("g", "u1", false)

	require.NoError(t, dispatch("!rules set"))

	answer(s, conf, "u1", emojiYes)
	require.NoError(t, mod.greet(context.Background(), joined("u1")))

	assert.Empty(t, s.RoleAdds)
	assert.Empty(t, s.KickList())
}
