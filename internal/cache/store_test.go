package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"rssfeed/internal/cache"
	"rssfeed/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenBackend struct {
	value []byte
	err   error
}

func (b brokenBackend) GetCacheValue(_ context.Context, _ string, _ time.Time) ([]byte, bool, error) {
	if b.err != nil {
		return nil, false, b.err
	}

	return b.value, true, nil
}

func (b brokenBackend) ReplaceCacheValue(_ context.Context, _ string, _ []byte, _ time.Time, _ time.Duration) error {
	return b.err
}

func sampleItems() []domain.FeedItem {
	return []domain.FeedItem{
		{
			Title:       "Tom &amp; Jerry",
			Link:        "https://example.com/1",
			Description: "First",
			Source:      "example.com",
			PublishedAt: time.Date(2026, 2, 19, 8, 0, 0, 0, time.UTC),
		},
		{
			Title:       "Second",
			Link:        "https://example.org/2",
			Source:      "example.org",
			PublishedAt: time.Date(2026, 2, 18, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend())
	ctx := context.Background()

	_, err := store.Set(ctx, "key", sampleItems(), time.Minute)
	require.NoError(t, err)

	got, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleItems(), got)
}

func TestStoreExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 2, 19, 8, 0, 0, 0, time.UTC)
	store := cache.NewStoreWithClock(cache.NewMemoryBackend(), func() time.Time { return now })
	ctx := context.Background()

	expiresAt, err := store.Set(ctx, "key", sampleItems(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), expiresAt)

	now = now.Add(59 * time.Second)
	_, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreRoundTripEmpty(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend())
	ctx := context.Background()

	_, err := store.Set(ctx, "key", nil, time.Minute)
	require.NoError(t, err)

	got, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStoreMissingKey(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend())

	got, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStoreRejectsNonPositiveTTL(t *testing.T) {
	store := cache.NewStore(cache.NewMemoryBackend())

	_, err := store.Set(context.Background(), "key", sampleItems(), 0)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestStoreWrapsBackendErrors(t *testing.T) {
	store := cache.NewStore(brokenBackend{err: errors.New("database is locked")})
	ctx := context.Background()

	_, _, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)

	_, err = store.Set(ctx, "key", sampleItems(), time.Minute)
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

func TestStoreTreatsUndecodableValueAsUnavailable(t *testing.T) {
	tests := map[string]string{
		"garbage":        "a:2:{i:0;s:5:\"hello\";}",
		"future version": `{"version": 2, "items": []}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			store := cache.NewStore(brokenBackend{value: []byte(raw)})

			_, ok, err := store.Get(context.Background(), "key")
			assert.False(t, ok)
			assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
		})
	}
}

func TestEncodeIsVersioned(t *testing.T) {
	raw, err := cache.Encode(sampleItems()[:1])
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"version": 1,
		"items": [{
			"title": "Tom &amp; Jerry",
			"link": "https://example.com/1",
			"description": "First",
			"source": "example.com",
			"publishedAt": "2026-02-19T08:00:00Z"
		}]
	}`, string(raw))
}
