package bot_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/bot/bottest"
	"github.com/eientei/doorman/discordbot/config"
)

func TestIsStatus(t *testing.T) {
	assert.True(t, bot.IsStatus(bottest.RESTError(http.StatusForbidden), http.StatusForbidden, http.StatusNotFound))
	assert.True(t, bot.IsStatus(fmt.Errorf("wrapped: %w", bottest.RESTError(http.StatusNotFound)), http.StatusNotFound))
	assert.False(t, bot.IsStatus(bottest.RESTError(http.StatusBadGateway), http.StatusForbidden))
	assert.False(t, bot.IsStatus(errors.New("plain"), http.StatusForbidden))
	assert.False(t, bot.IsStatus(nil, http.StatusForbidden))
}

func TestResolveRole(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("g", "owner")
	s.AddRole("g", "10", "members", 0)

	r, err := bot.ResolveRole(s, "g", "<@&10>")
	require.NoError(t, err)
	assert.Equal(t, "members", r.Name)

	r, err = bot.ResolveRole(s, "g", "members")
	require.NoError(t, err)
	assert.Equal(t, "10", r.ID)

	r, err = bot.ResolveRole(s, "g", "@everyone")
	require.NoError(t, err)
	assert.Equal(t, "g", r.ID)

	_, err = bot.ResolveRole(s, "g", "ghosts")
	assert.ErrorIs(t, err, bot.ErrRoleNotFound)
}

func TestResolveChannel(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("1", "owner")
	s.AddGuild("2", "owner")
	s.AddChannel("1", "11")
	s.AddChannel("2", "22")

	c, err := bot.ResolveChannel(s, "1", "<#11>")
	require.NoError(t, err)
	assert.Equal(t, "11", c.ID)

	_, err = bot.ResolveChannel(s, "1", "22")
	assert.ErrorIs(t, err, bot.ErrChannelNotFound)

	_, err = bot.ResolveChannel(s, "1", "33")
	assert.ErrorIs(t, err, bot.ErrChannelNotFound)

	_, err = bot.ResolveChannel(s, "1", "general")
	assert.ErrorIs(t, err, bot.ErrChannelNotFound)
}

func TestMemberRoleNames(t *testing.T) {
	roles := map[string]*discordgo.Role{
		"g":  {ID: "g", Name: bot.EveryoneRole},
		"10": {ID: "10", Name: "members"},
	}

	names := bot.MemberRoleNames(&discordgo.Member{Roles: []string{"10", "missing"}}, roles)
	assert.Equal(t, []string{bot.EveryoneRole, "members"}, names)
}

func TestListMembers(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("g", "owner")
	s.AddMember("g", "a", false)
	s.AddMember("g", "b", true)

	members, err := bot.ListMembers(s, "g")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestHasPermission(t *testing.T) {
	s := bottest.NewSession()
	s.AddGuild("g", "owner")
	s.AddRole("g", "mod", "moderators", discordgo.PermissionKickMembers)
	s.AddRole("g", "adm", "admins", discordgo.PermissionAdministrator)
	s.AddRole("g", "staff", "staff", 0)
	s.AddRole("g", "plain", "plain", 0)

	conf := bottest.NewConfiguration(t, s)
	conf.Config.Private.Owner = "botowner"

	conf.Config.Servers = append(conf.Config.Servers, config.Server{GuildID: "g", Moderators: []string{"staff"}})

	check := func(userID string, roles ...string) bool {
		return conf.AuthorHasPermission(bottest.Command("g", "c", userID, "!x", roles...), discordgo.PermissionKickMembers, nil, nil)
	}

	assert.True(t, check("owner"))
	assert.True(t, check("botowner"))
	assert.True(t, check("u", "mod"))
	assert.True(t, check("u", "adm"))
	assert.True(t, check("u", "staff"))
	assert.False(t, check("u", "plain"))
	assert.False(t, check("u"))
}
