package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rssfeed/internal/domain"
	"rssfeed/internal/render"
)

const CacheKeyPrefix = "rssfeed_latest_items_"

type Aggregator interface {
	Aggregate(ctx context.Context, cfg domain.AggregationConfig) ([]domain.FeedItem, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]domain.FeedItem, bool, error)
	Set(ctx context.Context, key string, items []domain.FeedItem, ttl time.Duration) (time.Time, error)
}

type Recorder interface {
	CacheHit(ctx context.Context, key string)
	CacheMiss(ctx context.Context, key string)
	CacheReadFailed(ctx context.Context, key string, err error)
	CacheWritten(ctx context.Context, key string, itemCount int, expiresAt time.Time)
	CacheWriteFailed(ctx context.Context, key string, err error)
}

type Service struct {
	aggregator Aggregator
	cache      Cache
	recorder   Recorder
	log        *slog.Logger
}

func New(aggregator Aggregator, cache Cache, recorder Recorder, log *slog.Logger) *Service {
	return &Service{
		aggregator: aggregator,
		cache:      cache,
		recorder:   recorder,
		log:        log,
	}
}

// Fingerprint derives the cache key from the ordered source list only.
func Fingerprint(sources []string) string {
	hash := sha256.Sum256([]byte(strings.Join(sources, "\n")))

	return CacheKeyPrefix + hex.EncodeToString(hash[:])
}

// GetItems serves from the cache while fresh and otherwise aggregates and caches
// the result, empty results included. Cache failures never fail the call; the
// only error is ctx's.
func (s *Service) GetItems(
	ctx context.Context,
	cfg domain.AggregationConfig,
) ([]domain.FeedItem, error) {
	key := Fingerprint(cfg.Sources)

	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.recorder.CacheReadFailed(ctx, key, err)
	case ok:
		s.recorder.CacheHit(ctx, key)

		return cached, nil
	default:
		s.recorder.CacheMiss(ctx, key)
	}

	return s.refresh(ctx, cfg, key)
}

// Refresh aggregates and rewrites the cache entry regardless of its freshness.
// It shares GetItems' error contract.
func (s *Service) Refresh(
	ctx context.Context,
	cfg domain.AggregationConfig,
) ([]domain.FeedItem, error) {
	return s.refresh(ctx, cfg, Fingerprint(cfg.Sources))
}

func (s *Service) refresh(
	ctx context.Context,
	cfg domain.AggregationConfig,
	key string,
) ([]domain.FeedItem, error) {
	items, err := s.aggregator.Aggregate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	if len(items) == 0 {
		s.log.WarnContext(ctx, "No feed items are available",
			"cacheKey", key,
			"sourceCount", len(cfg.Sources))
	}

	expiresAt, err := s.cache.Set(ctx, key, items, cfg.RefreshInterval())
	if err != nil {
		s.recorder.CacheWriteFailed(ctx, key, err)

		return items, nil
	}

	s.recorder.CacheWritten(ctx, key, len(items), expiresAt)

	return items, nil
}

func (s *Service) Render(ctx context.Context, cfg domain.AggregationConfig) (string, error) {
	items, err := s.GetItems(ctx, cfg)
	if err != nil {
		return "", err
	}

	return render.Fragment(items), nil
}

// Embed aggregates only when content holds the placeholder.
func (s *Service) Embed(
	ctx context.Context,
	cfg domain.AggregationConfig,
	content string,
) (string, error) {
	var renderErr error

	embedded := render.Embed(content, func() string {
		var fragment string
		fragment, renderErr = s.Render(ctx, cfg)

		return fragment
	})
	if renderErr != nil {
		return "", renderErr
	}

	return embedded, nil
}
