package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
)

const schema = `
create table if not exists record (
  scope text not null,
  guild_id text not null,
  data jsonb not null,
  primary key (scope, guild_id)
);
create table if not exists activity (
  guild_id text not null,
  member_id text not null,
  seen bigint not null,
  primary key (guild_id, member_id)
);
`

// SQLStore implements Store on top of postgres
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQLStore connects to postgres database and ensures schema
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}

	store := NewSQLStore(db)

	err = store.Migrate(ctx)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return store, nil
}

// NewSQLStore wraps existing connection
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates missing tables
func (store *SQLStore) Migrate(ctx context.Context) error {
	_, err := store.db.ExecContext(ctx, schema)

	return err
}

// Close closes underlying connection
func (store *SQLStore) Close() error {
	return store.db.Close()
}

// RecordGet decodes guild record of given scope into v
func (store *SQLStore) RecordGet(ctx context.Context, scope, guildID string, v interface{}) error {
	var data []byte

	err := store.db.GetContext(ctx, &data, `select data from record where scope = $1 and guild_id = $2`, scope, guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

// RecordPut stores guild record of given scope
func (store *SQLStore) RecordPut(ctx context.Context, scope, guildID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = store.db.ExecContext(ctx, `
insert into record(scope, guild_id, data) values ($1, $2, $3)
on conflict (scope, guild_id) do update set data = excluded.data
`, scope, guildID, data)

	return err
}

// RecordDelete removes guild record of given scope
func (store *SQLStore) RecordDelete(ctx context.Context, scope, guildID string) error {
	_, err := store.db.ExecContext(ctx, `delete from record where scope = $1 and guild_id = $2`, scope, guildID)

	return err
}

// RecordGuilds lists guilds having a record of given scope
func (store *SQLStore) RecordGuilds(ctx context.Context, scope string) (guilds []string, err error) {
	err = store.db.SelectContext(ctx, &guilds, `select guild_id from record where scope = $1`, scope)

	return
}

// ActivityReset replaces guild activity log with given members seen at given time
func (store *SQLStore) ActivityReset(ctx context.Context, guildID string, memberIDs []string, at time.Time) error {
	tx, err := store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `delete from activity where guild_id = $1`, guildID)
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	stmt, err := tx.PreparexContext(ctx, `insert into activity(guild_id, member_id, seen) values ($1, $2, $3)`)
	if err != nil {
		_ = tx.Rollback()

		return err
	}

	for _, id := range memberIDs {
		_, err = stmt.ExecContext(ctx, guildID, id, at.Unix())
		if err != nil {
			_ = tx.Rollback()

			return err
		}
	}

	return tx.Commit()
}

// ActivityTouch marks member as seen at given time
func (store *SQLStore) ActivityTouch(ctx context.Context, guildID, memberID string, at time.Time) error {
	_, err := store.db.ExecContext(ctx, `
insert into activity(guild_id, member_id, seen) values ($1, $2, $3)
on conflict (guild_id, member_id) do update set seen = excluded.seen
`, guildID, memberID, at.Unix())

	return err
}

// ActivityForget removes member from guild activity log
func (store *SQLStore) ActivityForget(ctx context.Context, guildID, memberID string) error {
	_, err := store.db.ExecContext(ctx, `delete from activity where guild_id = $1 and member_id = $2`, guildID, memberID)

	return err
}

// ActivityDrop removes guild activity log
func (store *SQLStore) ActivityDrop(ctx context.Context, guildID string) error {
	_, err := store.db.ExecContext(ctx, `delete from activity where guild_id = $1`, guildID)

	return err
}

type activityRow struct {
	MemberID string `db:"member_id"`
	Seen     int64  `db:"seen"`
}

// ActivityList returns last seen times of all logged guild members
func (store *SQLStore) ActivityList(ctx context.Context, guildID string) (map[string]time.Time, error) {
	var rows []activityRow

	err := store.db.SelectContext(ctx, &rows, `select member_id, seen from activity where guild_id = $1`, guildID)
	if err != nil {
		return nil, err
	}

	res := make(map[string]time.Time, len(rows))

	for _, r := range rows {
		res[r.MemberID] = time.Unix(r.Seen, 0)
	}

	return res, nil
}
