package bot

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"
)

// EveryoneRole is the name of implicit role every member has
const EveryoneRole = "@everyone"

const memberPage = 1000

var (
	// ErrRoleNotFound is returned when role reference can not be resolved
	ErrRoleNotFound = errors.New("role not found")
	// ErrChannelNotFound is returned when channel reference can not be resolved
	ErrChannelNotFound = errors.New("channel not found")

	roleMention    = regexp.MustCompile(`^<@&(\d+)>$`)
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	snowflake      = regexp.MustCompile(`^\d+$`)
)

// IsStatus returns true if err is discord REST error with one of given HTTP status codes
func IsStatus(err error, codes ...int) bool {
	var rest *discordgo.RESTError

	if !errors.As(err, &rest) || rest.Response == nil {
		return false
	}

	for _, c := range codes {
		if rest.Response.StatusCode == c {
			return true
		}
	}

	return false
}

// GuildRoleMap returns guild roles by id
func GuildRoleMap(session Session, guildID string) (map[string]*discordgo.Role, error) {
	roles, err := session.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}

	res := make(map[string]*discordgo.Role, len(roles))

	for _, r := range roles {
		res[r.ID] = r
	}

	return res, nil
}

// MemberRoleNames returns names of member roles, including implicit everyone role
func MemberRoleNames(member *discordgo.Member, roles map[string]*discordgo.Role) []string {
	names := []string{EveryoneRole}

	for _, id := range member.Roles {
		if r, ok := roles[id]; ok && r.Name != EveryoneRole {
			names = append(names, r.Name)
		}
	}

	return names
}

// ListMembers returns all guild members, following pagination
func ListMembers(session Session, guildID string) (members []*discordgo.Member, err error) {
	after := ""

	for {
		var page []*discordgo.Member

		page, err = session.GuildMembers(guildID, after, memberPage)
		if err != nil {
			return nil, err
		}

		members = append(members, page...)

		if len(page) < memberPage {
			return members, nil
		}

		after = page[len(page)-1].User.ID
	}
}

// ResolveRole finds guild role by mention, id or name
func ResolveRole(session Session, guildID, ref string) (*discordgo.Role, error) {
	if m := roleMention.FindStringSubmatch(ref); m != nil {
		ref = m[1]
	}

	roles, err := session.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}

	for _, r := range roles {
		if r.ID == ref || r.Name == ref {
			return r, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, ref)
}

// ResolveChannel finds guild channel by mention or id
func ResolveChannel(session Session, guildID, ref string) (*discordgo.Channel, error) {
	if m := channelMention.FindStringSubmatch(ref); m != nil {
		ref = m[1]
	}

	if !snowflake.MatchString(ref) {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
	}

	channel, err := session.Channel(ref)
	if IsStatus(err, 404) || (err == nil && channel.GuildID != guildID) {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
	}

	return channel, err
}

// Mention returns user mention
func Mention(userID string) string {
	return "<@" + userID + ">"
}
