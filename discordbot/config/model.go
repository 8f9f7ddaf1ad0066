package config

import (
	"time"
)

// Redis connection part of configuration
type Redis struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Activity checker tuning
type Activity struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}

// Private part of configuration
type Private struct {
	Token    string   `yaml:"token"`
	Owner    string   `yaml:"owner"`
	Prefix   string   `yaml:"prefix"`
	Database string   `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Activity Activity `yaml:"activity"`
}

// Server specific part of configuration
type Server struct {
	GuildID    string   `yaml:"id"`
	Prefix     string   `yaml:"prefix"`
	Moderators []string `yaml:"moderators"`
}

// Root of configuration
type Root struct {
	Servers []Server `yaml:"servers"`
	Private Private  `yaml:"private"`
}

// Server returns server specific configuration, if any
func (root *Root) Server(guildID string) *Server {
	for i := range root.Servers {
		if root.Servers[i].GuildID == guildID {
			return &root.Servers[i]
		}
	}

	return nil
}

// Defaults fills unset values
func (root *Root) Defaults() {
	if root.Private.Prefix == "" {
		root.Private.Prefix = "!"
	}

	if root.Private.Redis.Address == "" {
		root.Private.Redis.Address = "localhost:6379"
	}

	if root.Private.Activity.Interval == 0 {
		root.Private.Activity.Interval = 5 * time.Second
	}

	if root.Private.Activity.Grace == 0 {
		root.Private.Activity.Grace = 15 * time.Second
	}
}
