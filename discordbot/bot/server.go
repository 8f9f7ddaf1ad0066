package bot

import (
	"github.com/bwmarrin/discordgo"
)

type server struct {
	prefixes map[string]string
}

func (bot *Bot) guild(guildID string) *server {
	bot.m.RLock()
	s, ok := bot.servers[guildID]
	bot.m.RUnlock()

	if ok {
		return s
	}

	bot.m.Lock()
	defer bot.m.Unlock()

	if s, ok = bot.servers[guildID]; !ok {
		s = &server{
			prefixes: map[string]string{
				"": bot.Config.Private.Prefix,
			},
		}
		bot.servers[guildID] = s
	}

	return s
}

func (bot *Bot) prefixes(guildID string) map[string]string {
	s := bot.guild(guildID)

	bot.m.RLock()
	defer bot.m.RUnlock()

	res := make(map[string]string, len(s.prefixes))
	for k, v := range s.prefixes {
		res[k] = v
	}

	return res
}

func (bot *Bot) configure(guild *discordgo.Guild) {
	prefix, err := bot.Repository.ConfigGet(guild.ID, "global", "prefix")
	if err != nil {
		bot.Log.WithError(err).Error("Getting server prefix", guild.ID)
		return
	}

	if prefix == "" {
		if srv := bot.Config.Server(guild.ID); srv != nil {
			prefix = srv.Prefix
		}
	}

	if prefix == "" {
		prefix = bot.Config.Private.Prefix
	}

	if prefix == "" {
		prefix = "!"
	}

	s := bot.guild(guild.ID)

	bot.m.Lock()
	s.prefixes = map[string]string{
		"": prefix,
	}
	bot.m.Unlock()
}

// Reload performs reload of all configuration values in configured modules
func (bot *Bot) Reload() {
	bot.m.RLock()

	ids := make([]string, 0, len(bot.servers))
	for k := range bot.servers {
		ids = append(ids, k)
	}

	bot.m.RUnlock()

	for _, k := range ids {
		guild, err := bot.Session.Guild(k)
		if err != nil {
			bot.Log.WithError(err).Error("Getting guild", k)
			continue
		}

		bot.configure(guild)

		for _, m := range bot.Modules {
			m.Configure(&bot.Configuration, guild)
		}
	}
}
