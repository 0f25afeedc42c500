package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data   map[string]string
	getErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	client := &fakeRedis{data: map[string]string{}}
	s := newRedisStorage(client, "tradebot:config:default")
	ctx := context.Background()

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Store(ctx, []byte(`{"trader":{"enabled":true}}`)))
	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trader":{"enabled":true}}`, string(data))
	assert.Equal(t, "redis:tradebot:config:default", s.Name())

	client.getErr = errors.New("connection refused")
	_, err = s.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

type fakeRow struct {
	data []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.data
	return nil
}

type fakePostgres struct {
	rows  map[string][]byte
	execs []string
}

func (f *fakePostgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if len(args) == 2 {
		f.rows[args[0].(string)] = args[1].([]byte)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePostgres) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	data, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{data: data}
}

func TestPostgresStorage_RoundTrip(t *testing.T) {
	db := &fakePostgres{rows: map[string][]byte{}}
	s := newPostgresStorage(db, "default")
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx))
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS bot_configurations")

	_, err := s.Load(ctx)
	assert.True(t, errors.Is(err, ErrNotFound))

	doc := FromMap(map[string]interface{}{"trader-simulator": map[string]interface{}{"enabled": true}}, s)
	require.NoError(t, doc.SaveContext(ctx))

	loaded, err := Load(ctx, s)
	require.NoError(t, err)
	sim, ok := loaded.Section(SectionSimulator)
	require.True(t, ok)
	assert.Equal(t, true, sim[OptionEnabled])
}
