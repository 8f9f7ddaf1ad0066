package cleanup

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/eientei/doorman/discordbot/bot"
)

// Task provides message removal delayed task
type Task struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Attempts  int    `json:"attempts,omitempty"`
}

const (
	retryDelay  = 5 * time.Second
	maxAttempts = 5
)

// Scope returns task scope
func (Task) Scope() string {
	return "cleanup"
}

// Name returns task name
func (Task) Name() string {
	return "message"
}

func enqueue(config *bot.Configuration, delay time.Duration, msgs ...*discordgo.Message) {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}

		_, err := config.Repository.TaskEnqueue(&Task{
			GuildID:   msg.GuildID,
			ChannelID: msg.ChannelID,
			MessageID: msg.ID,
		}, delay)
		if err != nil {
			config.Log.WithError(err).WithField("message", msg.ID).Error("Enqueueing message cleanup")
		}
	}
}

// Schedule enqueues removal of prompt messages if guild has prompt cleanup delay configured
func Schedule(config *bot.Configuration, guildID string, msgs ...*discordgo.Message) {
	delay, err := Delay(config, guildID, KeyPrompts)
	if err != nil {
		config.Log.WithError(err).WithField("guild", guildID).Error("Getting prompt cleanup delay")
		return
	}

	if delay <= 0 {
		return
	}

	enqueue(config, delay, msgs...)
}

func (mod *module) process(task *Task, id string) {
	err := mod.config.Session.ChannelMessageDelete(task.ChannelID, task.MessageID)

	switch {
	case err == nil, bot.IsStatus(err, http.StatusNotFound, http.StatusForbidden):
	case task.Attempts+1 >= maxAttempts:
		mod.config.Log.WithError(err).WithField("message", task.MessageID).Error("Giving up deleting message")
	default:
		mod.config.Log.WithError(err).WithField("message", task.MessageID).Warn("Deleting message")

		retry := *task
		retry.Attempts++

		_, err = mod.config.Repository.TaskEnqueue(&retry, retryDelay<<task.Attempts)
		if err != nil {
			mod.config.Log.WithError(err).WithField("message", task.MessageID).Error("Rescheduling message cleanup")
			return
		}
	}

	err = mod.config.Repository.TaskAck(task, id)
	if err != nil {
		mod.config.Log.WithError(err).Error("Acking task", id)
	}
}

func (mod *module) start(ctx context.Context) {
	for ctx.Err() == nil {
		task := &Task{}

		id, err := mod.config.Repository.TaskDequeue(task, time.Second)
		if err != nil {
			mod.config.Log.WithError(err).Error("Dequeuing")

			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}

			continue
		}

		if id == "" {
			continue
		}

		mod.process(task, id)
	}
}
