package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/go-redis/redis/v7"
)

const taskGroup = "tasks"

// Repository provides methods to get and set configuration, enqueue and dequeue tasks,
// and implements Store on top of redis
type Repository struct {
	Client *redis.Client
	Groups map[string]bool
	m      sync.Mutex
}

// ConfigSet sets config value for given guild
func (repo *Repository) ConfigSet(guildID, scope, key, value string) error {
	fullkey := fmt.Sprintf("%s.%s.%s", guildID, scope, key)

	return repo.Client.Set(fullkey, value, 0).Err()
}

// ConfigGet returns config value for given guild
func (repo *Repository) ConfigGet(guildID, scope, key string) (s string, err error) {
	fullkey := fmt.Sprintf("%s.%s.%s", guildID, scope, key)
	s, err = repo.Client.Get(fullkey).Result()

	if err == redis.Nil {
		err = nil
	}

	return
}

// ConfigDel removes config value for given guild
func (repo *Repository) ConfigDel(guildID, scope, key string) error {
	fullkey := fmt.Sprintf("%s.%s.%s", guildID, scope, key)

	return repo.Client.Del(fullkey).Err()
}

func recordKey(scope string) string {
	return "records." + scope
}

// RecordGet decodes guild record of given scope into v
func (repo *Repository) RecordGet(ctx context.Context, scope, guildID string, v interface{}) error {
	bs, err := repo.Client.WithContext(ctx).HGet(recordKey(scope), guildID).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}

	if err != nil {
		return err
	}

	return json.Unmarshal(bs, v)
}

// RecordPut stores guild record of given scope
func (repo *Repository) RecordPut(ctx context.Context, scope, guildID string, v interface{}) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return repo.Client.WithContext(ctx).HSet(recordKey(scope), guildID, bs).Err()
}

// RecordDelete removes guild record of given scope
func (repo *Repository) RecordDelete(ctx context.Context, scope, guildID string) error {
	return repo.Client.WithContext(ctx).HDel(recordKey(scope), guildID).Err()
}

// RecordGuilds lists guilds having a record of given scope
func (repo *Repository) RecordGuilds(ctx context.Context, scope string) ([]string, error) {
	return repo.Client.WithContext(ctx).HKeys(recordKey(scope)).Result()
}

func activityKey(guildID string) string {
	return "activity." + guildID
}

// ActivityReset replaces guild activity log with given members seen at given time
func (repo *Repository) ActivityReset(ctx context.Context, guildID string, memberIDs []string, at time.Time) error {
	key := activityKey(guildID)
	seen := at.Unix()

	tx := repo.Client.WithContext(ctx).TxPipeline()
	tx.Del(key)

	if len(memberIDs) > 0 {
		values := make([]interface{}, 0, len(memberIDs)*2)

		for _, id := range memberIDs {
			values = append(values, id, seen)
		}

		tx.HSet(key, values...)
	}

	_, err := tx.Exec()

	return err
}

// ActivityTouch marks member as seen at given time
func (repo *Repository) ActivityTouch(ctx context.Context, guildID, memberID string, at time.Time) error {
	return repo.Client.WithContext(ctx).HSet(activityKey(guildID), memberID, at.Unix()).Err()
}

// ActivityForget removes member from guild activity log
func (repo *Repository) ActivityForget(ctx context.Context, guildID, memberID string) error {
	return repo.Client.WithContext(ctx).HDel(activityKey(guildID), memberID).Err()
}

// ActivityDrop removes guild activity log
func (repo *Repository) ActivityDrop(ctx context.Context, guildID string) error {
	return repo.Client.WithContext(ctx).Del(activityKey(guildID)).Err()
}

// ActivityList returns last seen times of all logged guild members
func (repo *Repository) ActivityList(ctx context.Context, guildID string) (map[string]time.Time, error) {
	raw, err := repo.Client.WithContext(ctx).HGetAll(activityKey(guildID)).Result()
	if err != nil {
		return nil, err
	}

	res := make(map[string]time.Time, len(raw))

	for id, s := range raw {
		seen, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing activity of %s.%s: %w", guildID, id, err)
		}

		res[id] = time.Unix(seen, 0)
	}

	return res, nil
}

func taskKey(task Task) string {
	return fmt.Sprintf("task.%s.%s", task.Scope(), task.Name())
}

// TaskEnqueue schedules task for execution after given delay
func (repo *Repository) TaskEnqueue(task Task, delay time.Duration) (id string, err error) {
	bs, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	return repo.Client.XAdd(&redis.XAddArgs{
		Stream: taskKey(task),
		Values: map[string]interface{}{
			"created": time.Now().UnixNano(),
			"delay":   int64(delay),
			"data":    bs,
		},
	}).Result()
}

func (repo *Repository) ensureGroup(fkey string) {
	repo.m.Lock()
	defer repo.m.Unlock()

	if repo.Groups[fkey] {
		return
	}

	err := repo.Client.XGroupCreateMkStream(fkey, taskGroup, "0").Err()
	if err == nil || strings.HasPrefix(err.Error(), "BUSYGROUP") {
		repo.Groups[fkey] = true
	}
}

// due returns remaining wait for message, zero when task is ready
func due(m *redis.XMessage, now time.Time) time.Duration {
	var created, delay int64

	if raw, ok := m.Values["created"].(string); ok {
		created, _ = strconv.ParseInt(raw, 10, 64)
	}

	if raw, ok := m.Values["delay"].(string); ok {
		delay, _ = strconv.ParseInt(raw, 10, 64)
	}

	left := time.Unix(0, created).Add(time.Duration(delay)).Sub(now)
	if left < 0 {
		return 0
	}

	return left
}

func (repo *Repository) readMessages(fkey, start string, block time.Duration) ([]redis.XMessage, error) {
	res, err := repo.Client.XReadGroup(&redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: "dequeue",
		Streams:  []string{fkey, start},
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var ms []redis.XMessage

	for _, s := range res {
		ms = append(ms, s.Messages...)
	}

	return ms, nil
}

func (repo *Repository) pick(fkey string, ms []redis.XMessage, task Task) (id string, minwait time.Duration, err error) {
	minwait = time.Duration(math.MaxInt64)
	now := time.Now()

	for i := range ms {
		m := &ms[i]

		left := due(m, now)
		if left > 0 {
			if left < minwait {
				minwait = left
			}

			continue
		}

		bs, _ := m.Values["data"].(string)

		err = json.Unmarshal([]byte(bs), task)
		if err != nil {
			tx := repo.Client.TxPipeline()
			tx.XAck(fkey, taskGroup, m.ID)
			tx.XDel(fkey, m.ID)
			_, _ = tx.Exec()

			return "", minwait, fmt.Errorf("decoding task %s: %w", m.ID, err)
		}

		return m.ID, minwait, nil
	}

	return "", minwait, nil
}

// TaskDequeue retrieves next due task into given task value, returning empty id when none is due
// within block duration
func (repo *Repository) TaskDequeue(task Task, block time.Duration) (id string, err error) {
	fkey := taskKey(task)

	repo.ensureGroup(fkey)

	pending, err := repo.readMessages(fkey, "0", -1)
	if err != nil {
		return "", err
	}

	id, minwait, err := repo.pick(fkey, pending, task)
	if err != nil || id != "" {
		return id, err
	}

	if minwait < block {
		block = minwait
	}

	if block < time.Millisecond {
		block = time.Millisecond
	}

	fresh, err := repo.readMessages(fkey, ">", block)
	if err != nil {
		return "", err
	}

	id, _, err = repo.pick(fkey, fresh, task)

	return id, err
}

// TaskAck confirms task as executed
func (repo *Repository) TaskAck(task Task, id string) error {
	fkey := taskKey(task)

	tx := repo.Client.TxPipeline()
	tx.XAck(fkey, taskGroup, id)
	tx.XDel(fkey, id)
	_, err := tx.Exec()

	return err
}
