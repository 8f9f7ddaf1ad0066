package model

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Channel string   `json:"channel"`
	Roles   []string `json:"roles"`
}

type testTask struct {
	MessageID string `json:"message_id"`
}

func (testTask) Scope() string {
	return "test"
}

func (testTask) Name() string {
	return "message"
}

func newTestRepository(t *testing.T) (*Repository, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewRepository(client), srv
}

func TestRepositoryConfig(t *testing.T) {
	repo, _ := newTestRepository(t)

	s, err := repo.ConfigGet("1", "global", "prefix")
	require.NoError(t, err)
	assert.Empty(t, s)

	require.NoError(t, repo.ConfigSet("1", "global", "prefix", "?"))

	s, err = repo.ConfigGet("1", "global", "prefix")
	require.NoError(t, err)
	assert.Equal(t, "?", s)

	require.NoError(t, repo.ConfigDel("1", "global", "prefix"))

	s, err = repo.ConfigGet("1", "global", "prefix")
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestRepositoryRecords(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	var rec testRecord

	assert.ErrorIs(t, repo.RecordGet(ctx, "rules", "1", &rec), ErrNotFound)

	require.NoError(t, repo.RecordPut(ctx, "rules", "1", &testRecord{Channel: "10", Roles: []string{"a"}}))
	require.NoError(t, repo.RecordPut(ctx, "rules", "2", &testRecord{Channel: "20"}))
	require.NoError(t, repo.RecordPut(ctx, "activity", "3", &testRecord{Channel: "30"}))

	require.NoError(t, repo.RecordGet(ctx, "rules", "1", &rec))
	assert.Equal(t, testRecord{Channel: "10", Roles: []string{"a"}}, rec)

	guilds, err := repo.RecordGuilds(ctx, "rules")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, guilds)

	require.NoError(t, repo.RecordDelete(ctx, "rules", "1"))
	assert.ErrorIs(t, repo.RecordGet(ctx, "rules", "1", &rec), ErrNotFound)

	guilds, err = repo.RecordGuilds(ctx, "rules")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, guilds)
}

func TestRepositoryActivity(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	at := time.Unix(1700000000, 0)

	require.NoError(t, repo.ActivityReset(ctx, "1", []string{"a", "b"}, at))

	log, err := repo.ActivityList(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"a": at, "b": at}, log)

	later := at.Add(time.Hour)

	require.NoError(t, repo.ActivityTouch(ctx, "1", "b", later))
	require.NoError(t, repo.ActivityTouch(ctx, "1", "c", later))
	require.NoError(t, repo.ActivityForget(ctx, "1", "a"))

	log, err = repo.ActivityList(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"b": later, "c": later}, log)

	require.NoError(t, repo.ActivityReset(ctx, "1", []string{"d"}, at))

	log, err = repo.ActivityList(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"d": at}, log)

	require.NoError(t, repo.ActivityDrop(ctx, "1"))

	log, err = repo.ActivityList(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestRepositoryTasks(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.TaskEnqueue(&testTask{MessageID: "later"}, time.Hour)
	require.NoError(t, err)

	_, err = repo.TaskEnqueue(&testTask{MessageID: "now"}, 0)
	require.NoError(t, err)

	task := &testTask{}

	var id string

	for i := 0; i < 3 && id == ""; i++ {
		id, err = repo.TaskDequeue(task, 10*time.Millisecond)
		require.NoError(t, err)
	}

	require.NotEmpty(t, id)
	assert.Equal(t, "now", task.MessageID)

	require.NoError(t, repo.TaskAck(task, id))

	next := &testTask{}

	id, err = repo.TaskDequeue(next, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, next.MessageID)
}
