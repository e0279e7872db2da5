package feed

import (
	"context"
	"fmt"

	"rssfeed/internal/domain"
)

type HostLimiter interface {
	Wait(ctx context.Context, host string) error
}

// LimitedFetcher waits for the source host's slot before delegating.
type LimitedFetcher struct {
	fetcher Fetcher
	limiter HostLimiter
}

func NewLimitedFetcher(fetcher Fetcher, limiter HostLimiter) *LimitedFetcher {
	return &LimitedFetcher{fetcher: fetcher, limiter: limiter}
}

func (f *LimitedFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, SourceHost(source)); err != nil {
		return nil, fmt.Errorf("%w: wait for host slot: %w", domain.ErrUnreachable, err)
	}

	return f.fetcher.Fetch(ctx, source)
}
