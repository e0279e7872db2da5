package feed

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"rssfeed/internal/domain"

	"golang.org/x/sync/errgroup"
)

const fetchFeedsMaxConcurrencyGrowthFactor = 10

type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

type Recorder interface {
	FetchFailed(ctx context.Context, source string, err error)
	ParseFailed(ctx context.Context, source string, err error)
	Aggregated(ctx context.Context, sourceCount int, itemCount int, took time.Duration)
}

type Aggregator struct {
	fetcher     Fetcher
	recorder    Recorder
	concurrency int
	now         func() time.Time
	log         *slog.Logger
}

func NewAggregator(
	fetcher Fetcher,
	recorder Recorder,
	concurrency int,
	log *slog.Logger,
) *Aggregator {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU() * fetchFeedsMaxConcurrencyGrowthFactor
	}

	return &Aggregator{
		fetcher:     fetcher,
		recorder:    recorder,
		concurrency: concurrency,
		now:         time.Now,
		log:         log,
	}
}

// Aggregate never fails because of a source. The only error is ctx's, and the
// partial result is dropped in that case.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	cfg domain.AggregationConfig,
) ([]domain.FeedItem, error) {
	start := a.now()
	perSource := make([][]domain.FeedItem, len(cfg.Sources))

	if len(cfg.Sources) > 0 {
		var g errgroup.Group
		g.SetLimit(min(a.concurrency, len(cfg.Sources)))

		for i, source := range cfg.Sources {
			g.Go(func() error {
				perSource[i] = a.collect(ctx, source)

				return nil
			})
		}

		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate feeds: %w", err)
	}

	merged := slices.Concat(perSource...)
	if merged == nil {
		merged = []domain.FeedItem{}
	}

	slices.SortStableFunc(merged, func(x, y domain.FeedItem) int {
		return y.PublishedAt.Compare(x.PublishedAt)
	})

	if limit := max(cfg.ItemCount, 0); len(merged) > limit {
		merged = slices.Clip(merged[:limit])
	}

	a.recorder.Aggregated(ctx, len(cfg.Sources), len(merged), a.now().Sub(start))

	return merged, nil
}

func (a *Aggregator) collect(ctx context.Context, source string) []domain.FeedItem {
	raw, err := a.fetcher.Fetch(ctx, source)
	if err != nil {
		a.recorder.FetchFailed(ctx, source, err)

		return nil
	}

	fetchedAt := a.now()

	rawItems, err := Parse(raw, fetchedAt)
	if err != nil {
		a.recorder.ParseFailed(ctx, source, err)

		return nil
	}

	items := make([]domain.FeedItem, 0, len(rawItems))
	for _, item := range rawItems {
		items = append(items, Normalize(item, source))
	}

	a.log.DebugContext(ctx, "Source is collected",
		"source", source,
		"itemCount", len(items))

	return items
}
