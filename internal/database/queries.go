package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (d *Database) GetCacheValue(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	query := `select cache_value
	from rssfeed_cache
	where cache_key = ?
	and expire_time > ?`

	var value string

	err := d.db.QueryRowContext(ctx, query, key, now.UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to execute query: %w", err)
	}

	return []byte(value), true, nil
}

// ReplaceCacheValue deletes and inserts within one transaction so a key never
// has two rows.
func (d *Database) ReplaceCacheValue(
	ctx context.Context,
	key string,
	value []byte,
	now time.Time,
	ttl time.Duration,
) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}

		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			d.log.ErrorContext(ctx, "Failed to rollback transaction",
				"error", rollbackErr,
				"cacheKey", key,
				"operation", "ReplaceCacheValue")
		}
	}()

	if _, err = tx.ExecContext(ctx, "delete from rssfeed_cache where cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete previous value: %w", err)
	}

	query := "insert into rssfeed_cache (cache_key, cache_value, expire_time) values (?, ?, ?)"

	if _, err = tx.ExecContext(ctx, query, key, string(value), now.Add(ttl).UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert value: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
