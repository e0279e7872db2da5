package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rssfeed/internal/domain"
)

// Backend stores opaque values. GetCacheValue reports a value only while its
// expiry is strictly after now; ReplaceCacheValue overwrites any previous value
// for key in one atomic step.
type Backend interface {
	GetCacheValue(ctx context.Context, key string, now time.Time) ([]byte, bool, error)
	ReplaceCacheValue(ctx context.Context, key string, value []byte, now time.Time, ttl time.Duration) error
}

type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return NewStoreWithClock(backend, time.Now)
}

func NewStoreWithClock(backend Backend, now func() time.Time) *Store {
	return &Store{backend: backend, now: now}
}

// Get returns ok=false for missing and expired entries alike.
func (s *Store) Get(ctx context.Context, key string) ([]domain.FeedItem, bool, error) {
	raw, ok, err := s.backend.GetCacheValue(ctx, key, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("%w: get value: %w", domain.ErrCacheUnavailable, err)
	}

	if !ok {
		return nil, false, nil
	}

	items, err := Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: decode value: %w", domain.ErrCacheUnavailable, err)
	}

	return items, true, nil
}

func (s *Store) Set(
	ctx context.Context,
	key string,
	items []domain.FeedItem,
	ttl time.Duration,
) (time.Time, error) {
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("%w: ttl must be positive, got %v", domain.ErrCacheUnavailable, ttl)
	}

	raw, err := Encode(items)
	if err != nil {
		return time.Time{}, errors.Join(domain.ErrCacheUnavailable, err)
	}

	now := s.now()
	if err = s.backend.ReplaceCacheValue(ctx, key, raw, now, ttl); err != nil {
		return time.Time{}, fmt.Errorf("%w: replace value: %w", domain.ErrCacheUnavailable, err)
	}

	return now.Add(ttl), nil
}
