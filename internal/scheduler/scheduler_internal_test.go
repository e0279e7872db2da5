package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"rssfeed/internal/cache"
	"rssfeed/internal/diagnostics"
	"rssfeed/internal/domain"
	"rssfeed/internal/feed"
	"rssfeed/internal/service"
)

type stubRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRefresher) Refresh(ctx context.Context, _ domain.AggregationConfig) ([]domain.FeedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected warm-up to carry a deadline")
	}

	return []domain.FeedItem{{Title: "x"}}, r.err
}

func testConfig() domain.AggregationConfig {
	return domain.AggregationConfig{
		Sources:                []string{"https://a.example/rss"},
		ItemCount:              10,
		RefreshIntervalSeconds: 3600,
	}
}

func TestSpec(t *testing.T) {
	if got := Spec(testConfig()); got != "@every 3600s" {
		t.Fatalf("unexpected spec: %q", got)
	}
}

func TestWarmUpCallsService(t *testing.T) {
	refresher := &stubRefresher{}
	s := New(context.Background(), refresher, testConfig(), slog.New(slog.DiscardHandler))

	s.warmUp()

	if refresher.calls != 1 {
		t.Fatalf("expected one call, got %d", refresher.calls)
	}
}

func TestWarmUpSkipsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refresher := &stubRefresher{}
	s := New(ctx, refresher, testConfig(), slog.New(slog.DiscardHandler))

	s.warmUp()

	if refresher.calls != 0 {
		t.Fatalf("expected no calls, got %d", refresher.calls)
	}
}

func TestStartRegistersJob(t *testing.T) {
	s := New(context.Background(), &stubRefresher{}, testConfig(), slog.New(slog.DiscardHandler))

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("expected one cron entry, got %d", got)
	}
}

const warmUpFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Blog</title>
<item><title>Post</title><link>https://a.example/1</link>
<pubDate>Mon, 02 Feb 2026 10:00:00 +0000</pubDate></item>
</channel></rss>`

type countingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	return []byte(warmUpFeed), nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func TestWarmUpRewritesCacheEveryInterval(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	fetcher := &countingFetcher{}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	svc := service.New(
		feed.NewAggregator(fetcher, diagnostics.Discard(), 1, log),
		cache.NewStoreWithClock(cache.NewMemoryBackend(), clock),
		diagnostics.Discard(),
		log,
	)

	cfg := testConfig()
	cfg.RefreshIntervalSeconds = 60
	s := New(context.Background(), svc, cfg, log)

	now = now.Add(2 * time.Second)
	s.warmUp()

	now = now.Add(58 * time.Second)
	s.warmUp()

	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("expected each warm-up to aggregate, got %d fetches", got)
	}

	now = now.Add(3 * time.Second)
	if _, err := svc.GetItems(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := fetcher.callCount(); got != 2 {
		t.Fatalf("expected the request to be served from the warmed cache, got %d fetches", got)
	}
}
