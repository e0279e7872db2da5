package database

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresCache(t *testing.T) (*PostgresCache, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresCache(mock, slog.New(slog.DiscardHandler)), mock
}

func TestPostgresCacheGetFresh(t *testing.T) {
	c, mock := newMockPostgresCache(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("select cache_value")).
		WithArgs("key", now).
		WillReturnRows(pgxmock.NewRows([]string{"cache_value"}).AddRow(`{"version":1,"items":[]}`))

	value, ok, err := c.GetCacheValue(context.Background(), "key", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"version":1,"items":[]}`, string(value))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheGetMissing(t *testing.T) {
	c, mock := newMockPostgresCache(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("select cache_value")).
		WithArgs("key", now).
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := c.GetCacheValue(context.Background(), "key", now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheReplaceUpserts(t *testing.T) {
	c, mock := newMockPostgresCache(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("on conflict (cache_key) do update")).
		WithArgs("key", "value", now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, c.ReplaceCacheValue(context.Background(), "key", []byte("value"), now, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheErrors(t *testing.T) {
	c, mock := newMockPostgresCache(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("select cache_value")).
		WithArgs("key", now).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec(regexp.QuoteMeta("insert into rssfeed_cache")).
		WithArgs("key", "value", now.Add(time.Minute)).
		WillReturnError(errors.New("connection reset"))

	_, _, err := c.GetCacheValue(ctx, "key", now)
	assert.Error(t, err)

	assert.Error(t, c.ReplaceCacheValue(ctx, "key", []byte("value"), now, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCacheInstallUninstall(t *testing.T) {
	c, mock := newMockPostgresCache(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("create table if not exists rssfeed_cache")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec(regexp.QuoteMeta(dropPostgresCacheTableQuery)).
		WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))

	require.NoError(t, c.Install(ctx))
	require.NoError(t, c.Uninstall(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
