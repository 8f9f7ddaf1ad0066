// Package bottest provides in-memory discord session and bot configuration for module tests
package bottest

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/discordgo"
	redis "github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"

	"github.com/eientei/doorman/discordbot/bot"
	"github.com/eientei/doorman/discordbot/config"
	"github.com/eientei/doorman/discordbot/model"
	"github.com/eientei/doorman/discordbot/reaction"
	"github.com/eientei/doorman/discordbot/router"
)

// Reaction is a reaction added by bot
type Reaction struct {
	ChannelID string
	MessageID string
	Emoji     string
}

// RoleAdd is a role granted by bot
type RoleAdd struct {
	GuildID string
	UserID  string
	RoleID  string
}

// Kick is a member removed by bot
type Kick struct {
	GuildID string
	UserID  string
}

// Session is an in-memory discord session
type Session struct {
	Guilds    map[string]*discordgo.Guild
	Roles     map[string][]*discordgo.Role
	Members   map[string]map[string]*discordgo.Member
	Channels  map[string]*discordgo.Channel
	Sent      []*discordgo.Message
	Reactions []Reaction
	RoleAdds  []RoleAdd
	Kicks     []Kick
	Invites   []*discordgo.Invite
	Deleted   []string

	// DMError is returned when sending to direct message channels
	DMError error
	// DeleteErrors are returned when deleting messages with given ids
	DeleteErrors map[string]error
	// OnReact is called after bot adds reaction
	OnReact func(r Reaction)

	m      sync.Mutex
	nextID int
}

// NewSession provides empty session
func NewSession() *Session {
	return &Session{
		Guilds:   make(map[string]*discordgo.Guild),
		Roles:    make(map[string][]*discordgo.Role),
		Members:  make(map[string]map[string]*discordgo.Member),
		Channels: make(map[string]*discordgo.Channel),
	}
}

// RESTError returns discord REST error with given status code
func RESTError(code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{
			StatusCode: code,
			Status:     strconv.Itoa(code) + " " + http.StatusText(code),
		},
	}
}

// AddGuild registers guild with everyone role and text channel of the same id as guild
func (s *Session) AddGuild(guildID, ownerID string) *discordgo.Guild {
	s.m.Lock()
	defer s.m.Unlock()

	g := &discordgo.Guild{ID: guildID, Name: "guild " + guildID, OwnerID: ownerID, SystemChannelID: guildID}
	s.Guilds[guildID] = g
	s.Roles[guildID] = append(s.Roles[guildID], &discordgo.Role{ID: guildID, Name: bot.EveryoneRole})
	s.Members[guildID] = make(map[string]*discordgo.Member)
	s.Channels[guildID] = &discordgo.Channel{ID: guildID, GuildID: guildID, Name: "general"}

	return g
}

// AddRole registers guild role
func (s *Session) AddRole(guildID, roleID, name string, permissions int64) *discordgo.Role {
	s.m.Lock()
	defer s.m.Unlock()

	r := &discordgo.Role{ID: roleID, Name: name, Permissions: permissions}
	s.Roles[guildID] = append(s.Roles[guildID], r)

	return r
}

// AddChannel registers guild channel
func (s *Session) AddChannel(guildID, channelID string) *discordgo.Channel {
	s.m.Lock()
	defer s.m.Unlock()

	c := &discordgo.Channel{ID: channelID, GuildID: guildID, Name: "channel-" + channelID}
	s.Channels[channelID] = c

	return c
}

// AddMember registers guild member with given role ids
func (s *Session) AddMember(guildID, userID string, isBot bool, roleIDs ...string) *discordgo.Member {
	s.m.Lock()
	defer s.m.Unlock()

	m := &discordgo.Member{
		GuildID: guildID,
		User:    &discordgo.User{ID: userID, Username: "user" + userID, Bot: isBot},
		Roles:   roleIDs,
	}
	s.Members[guildID][userID] = m

	return m
}

// Texts returns contents of messages sent to channel
func (s *Session) Texts(channelID string) (res []string) {
	s.m.Lock()
	defer s.m.Unlock()

	for _, m := range s.Sent {
		if m.ChannelID != channelID {
			continue
		}

		if m.Content == "" && len(m.Embeds) > 0 {
			res = append(res, m.Embeds[0].Description)
			continue
		}

		res = append(res, m.Content)
	}

	return
}

// KickList returns copy of recorded kicks
func (s *Session) KickList() []Kick {
	s.m.Lock()
	defer s.m.Unlock()

	return append([]Kick(nil), s.Kicks...)
}

func (s *Session) send(channelID string, msg *discordgo.Message) (*discordgo.Message, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if strings.HasPrefix(channelID, "dm-") && s.DMError != nil {
		return nil, s.DMError
	}

	s.nextID++

	msg.ID = "msg" + strconv.Itoa(s.nextID)
	msg.ChannelID = channelID

	if c, ok := s.Channels[channelID]; ok {
		msg.GuildID = c.GuildID
	}

	s.Sent = append(s.Sent, msg)

	return msg, nil
}

// ChannelMessageSend records message
func (s *Session) ChannelMessageSend(
	channelID, content string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return s.send(channelID, &discordgo.Message{Content: content})
}

// ChannelMessageSendEmbed records embed message
func (s *Session) ChannelMessageSendEmbed(
	channelID string,
	embed *discordgo.MessageEmbed,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return s.send(channelID, &discordgo.Message{Embeds: []*discordgo.MessageEmbed{embed}})
}

// MessageReactionAdd records reaction and calls OnReact hook
func (s *Session) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	r := Reaction{ChannelID: channelID, MessageID: messageID, Emoji: emojiID}

	s.m.Lock()
	s.Reactions = append(s.Reactions, r)
	hook := s.OnReact
	s.m.Unlock()

	if hook != nil {
		hook(r)
	}

	return nil
}

// Guild returns registered guild
func (s *Session) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	s.m.Lock()
	defer s.m.Unlock()

	g, ok := s.Guilds[guildID]
	if !ok {
		return nil, RESTError(http.StatusNotFound)
	}

	return g, nil
}

// GuildRoles returns registered guild roles
func (s *Session) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	s.m.Lock()
	defer s.m.Unlock()

	return append([]*discordgo.Role(nil), s.Roles[guildID]...), nil
}

// GuildMember returns registered member
func (s *Session) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	s.m.Lock()
	defer s.m.Unlock()

	m, ok := s.Members[guildID][userID]
	if !ok {
		return nil, RESTError(http.StatusNotFound)
	}

	return m, nil
}

// GuildMembers returns registered members, ignoring pagination
func (s *Session) GuildMembers(
	guildID, after string,
	_ int,
	_ ...discordgo.RequestOption,
) (res []*discordgo.Member, err error) {
	s.m.Lock()
	defer s.m.Unlock()

	if after != "" {
		return nil, nil
	}

	for _, m := range s.Members[guildID] {
		res = append(res, m)
	}

	return res, nil
}

// GuildMemberRoleAdd records granted role, failing on unknown roles
func (s *Session) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	s.m.Lock()
	defer s.m.Unlock()

	for _, r := range s.Roles[guildID] {
		if r.ID == roleID {
			s.RoleAdds = append(s.RoleAdds, RoleAdd{GuildID: guildID, UserID: userID, RoleID: roleID})

			return nil
		}
	}

	return RESTError(http.StatusNotFound)
}

// GuildMemberDelete records kick and removes member
func (s *Session) GuildMemberDelete(guildID, userID string, _ ...discordgo.RequestOption) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.Kicks = append(s.Kicks, Kick{GuildID: guildID, UserID: userID})
	delete(s.Members[guildID], userID)

	return nil
}

// Channel returns registered channel
func (s *Session) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	s.m.Lock()
	defer s.m.Unlock()

	c, ok := s.Channels[channelID]
	if !ok {
		return nil, RESTError(http.StatusNotFound)
	}

	return c, nil
}

// ChannelInviteCreate records invite
func (s *Session) ChannelInviteCreate(
	channelID string,
	i discordgo.Invite,
	_ ...discordgo.RequestOption,
) (*discordgo.Invite, error) {
	s.m.Lock()
	defer s.m.Unlock()

	i.Code = "code" + strconv.Itoa(len(s.Invites)+1)
	i.Channel = &discordgo.Channel{ID: channelID}
	s.Invites = append(s.Invites, &i)

	return &i, nil
}

// UserChannelCreate returns direct message channel
func (s *Session) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

// ChannelMessageDelete records deleted message
func (s *Session) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.DeleteErrors[messageID]; err != nil {
		return err
	}

	s.Deleted = append(s.Deleted, messageID)

	return nil
}

// DeletedList returns copy of deleted message ids
func (s *Session) DeletedList() []string {
	s.m.Lock()
	defer s.m.Unlock()

	return append([]string(nil), s.Deleted...)
}

// NewConfiguration provides bot configuration backed by given session and in-memory redis
func NewConfiguration(t testing.TB, session *Session) *bot.Configuration {
	t.Helper()

	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	root := &config.Root{}
	root.Defaults()

	repo := model.NewRepository(client)

	return &bot.Configuration{
		Session:    session,
		Client:     client,
		Config:     root,
		Log:        log,
		Router:     router.NewRouter(),
		Repository: repo,
		Store:      repo,
		Reactions:  reaction.NewWaiter(),
	}
}

// Command builds command message from given author in guild channel
func Command(guildID, channelID, authorID, content string, roleIDs ...string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "cmd-" + content,
		GuildID:   guildID,
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID},
		Member:    &discordgo.Member{Roles: roleIDs},
	}
}
