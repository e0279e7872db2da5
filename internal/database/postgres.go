package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createPostgresCacheTableQuery = `create table if not exists rssfeed_cache (
	id bigserial primary key,
	cache_key text not null unique,
	cache_value text not null,
	expire_time timestamptz not null
)`
	dropPostgresCacheTableQuery = "drop table if exists rssfeed_cache"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresCache struct {
	pool pgxQuerier
	log  *slog.Logger
}

func NewPostgresCache(pool pgxQuerier, log *slog.Logger) *PostgresCache {
	return &PostgresCache{pool: pool, log: log}
}

// ConnectPostgres opens a pool and installs the cache table. The returned func closes the pool.
func ConnectPostgres(ctx context.Context, url string, log *slog.Logger) (*PostgresCache, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	c := NewPostgresCache(pool, log)
	if err = c.Install(ctx); err != nil {
		pool.Close()

		return nil, nil, err
	}

	return c, pool.Close, nil
}

func (c *PostgresCache) Install(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, createPostgresCacheTableQuery); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}

	c.log.InfoContext(ctx, "Postgres cache table is installed")

	return nil
}

func (c *PostgresCache) Uninstall(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, dropPostgresCacheTableQuery); err != nil {
		return fmt.Errorf("drop cache table: %w", err)
	}

	c.log.InfoContext(ctx, "Postgres cache table is uninstalled")

	return nil
}

func (c *PostgresCache) GetCacheValue(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	query := `select cache_value
	from rssfeed_cache
	where cache_key = $1
	and expire_time > $2`

	var value string

	err := c.pool.QueryRow(ctx, query, key, now).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute query: %w", err)
	}

	return []byte(value), true, nil
}

func (c *PostgresCache) ReplaceCacheValue(
	ctx context.Context,
	key string,
	value []byte,
	now time.Time,
	ttl time.Duration,
) error {
	query := `insert into rssfeed_cache (cache_key, cache_value, expire_time)
	values ($1, $2, $3)
	on conflict (cache_key) do update
	set cache_value = excluded.cache_value,
	expire_time = excluded.expire_time`

	if _, err := c.pool.Exec(ctx, query, key, string(value), now.Add(ttl)); err != nil {
		return fmt.Errorf("failed to upsert value: %w", err)
	}

	return nil
}
