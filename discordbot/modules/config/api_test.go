package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eientei/doorman/discordbot/bot/bottest"
	"github.com/eientei/doorman/discordbot/modules/cleanup"
)

func TestConfigSetListDel(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("g", "owner")

	conf := bottest.NewConfiguration(t, s)
	require.NoError(t, New().Initialize(conf))

	prefixes := map[string]string{"": "!"}
	dispatch := func(content string) error {
		return conf.Router.Dispatch(s, prefixes, "bot", bottest.Command("g", "g", "owner", content))
	}

	require.NoError(t, dispatch("!config set cleanup.prompts 1m"))
	require.NoError(t, dispatch("!config set prefix ?"))

	v, err := conf.Repository.ConfigGet("g", cleanup.Scope, cleanup.KeyPrompts)
	require.NoError(t, err)
	assert.Equal(t, "1m", v)

	require.NoError(t, dispatch("!config list"))
	texts := s.Texts("g")
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "cleanup.prompts: 1m")
	assert.Contains(t, texts[len(texts)-1], "prefix: ?")

	require.NoError(t, dispatch("!config del cleanup.prompts"))

	v, err = conf.Repository.ConfigGet("g", cleanup.Scope, cleanup.KeyPrompts)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestConfigSetValidation(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("g", "owner")

	conf := bottest.NewConfiguration(t, s)
	require.NoError(t, New().Initialize(conf))

	prefixes := map[string]string{"": "!"}
	dispatch := func(content string) error {
		return conf.Router.Dispatch(s, prefixes, "bot", bottest.Command("g", "g", "owner", content))
	}

	assert.ErrorIs(t, dispatch("!config set colour red"), ErrUnknownKey)
	assert.Error(t, dispatch("!config set cleanup.replies soon"))
	assert.ErrorIs(t, dispatch("!config set prefix"), ErrInvalidArgumentNumber)

	v, err := conf.Repository.ConfigGet("g", cleanup.Scope, cleanup.KeyReplies)
	require.NoError(t, err)
	assert.Empty(t, v)
}
