package main

import (
	"context"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	redis "github.com/go-redis/redis/v7"
	flags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/eientei/doorman/discordbot/bot"
	yamlConfig "github.com/eientei/doorman/discordbot/config"
	"github.com/eientei/doorman/discordbot/model"
	"github.com/eientei/doorman/discordbot/modules/activity"
	"github.com/eientei/doorman/discordbot/modules/auth"
	"github.com/eientei/doorman/discordbot/modules/cleanup"
	"github.com/eientei/doorman/discordbot/modules/config"
	"github.com/eientei/doorman/discordbot/modules/help"
	"github.com/eientei/doorman/discordbot/modules/reply"
	"github.com/eientei/doorman/discordbot/modules/rules"
)

var opts struct {
	Config  string `short:"c" long:"config" default:"config.yml" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Debug logging"`
}

func readConfig(log *logrus.Logger, configPath string) *yamlConfig.Root {
	configFile, err := os.OpenFile(configPath, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}

	c, err := yamlConfig.Read(configFile)
	if err != nil {
		log.Fatal(err)
	}

	err = configFile.Close()
	if err != nil {
		log.Fatal(err)
	}

	c.Defaults()

	return c
}

func openStore(log *logrus.Logger, dsn string) model.Store {
	if dsn == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := model.OpenSQLStore(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}

	return store
}

func main() {
	log := logrus.New()

	_, err := flags.Parse(&opts)
	if err != nil {
		if t, ok := err.(*flags.Error); ok && t.Type == flags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}

	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	configRoot := readConfig(log, opts.Config)

	if configRoot.Private.Token == "" {
		log.Fatal("Missing token in config")
	}

	dg, err := discordgo.New("Bot " + configRoot.Private.Token)
	if err != nil {
		log.Fatal(err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	client := redis.NewClient(&redis.Options{
		Addr:     configRoot.Private.Redis.Address,
		Password: configRoot.Private.Redis.Password,
		DB:       configRoot.Private.Redis.DB,
	})

	b, err := bot.NewBot(bot.Options{
		Discord: dg,
		Client:  client,
		Store:   openStore(log, configRoot.Private.Database),
		Config:  configRoot,
		Log:     log,
		Modules: []bot.Module{
			cleanup.New(),
			reply.New(),
			auth.New(),
			help.New(),
			config.New(),
			rules.New(),
			activity.New(),
		},
	})

	if err != nil {
		log.Fatal(err)
	}

	err = b.Serve()
	if err != nil {
		log.Fatal(err)
	}
}
