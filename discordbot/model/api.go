// Package model provides configuration, task and record repositories
package model

import (
	"context"
	"errors"
	"time"

	redis "github.com/go-redis/redis/v7"
)

// ErrNotFound is returned when requested record does not exist
var ErrNotFound = errors.New("not found")

// Task provides interface for persistable tasks
type Task interface {
	Scope() string
	Name() string
}

// Records persists a single JSON document per scope and guild
type Records interface {
	RecordGet(ctx context.Context, scope, guildID string, v interface{}) error
	RecordPut(ctx context.Context, scope, guildID string, v interface{}) error
	RecordDelete(ctx context.Context, scope, guildID string) error
	RecordGuilds(ctx context.Context, scope string) ([]string, error)
}

// ActivityLog persists last seen time of guild members
type ActivityLog interface {
	ActivityReset(ctx context.Context, guildID string, memberIDs []string, at time.Time) error
	ActivityTouch(ctx context.Context, guildID, memberID string, at time.Time) error
	ActivityForget(ctx context.Context, guildID, memberID string) error
	ActivityDrop(ctx context.Context, guildID string) error
	ActivityList(ctx context.Context, guildID string) (map[string]time.Time, error)
}

// Store combines record and activity persistence
type Store interface {
	Records
	ActivityLog
}

// NewRepository provides Repository instance
func NewRepository(client *redis.Client) *Repository {
	return &Repository{
		Client: client,
		Groups: make(map[string]bool),
	}
}
