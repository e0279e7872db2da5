package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rssfeed/internal/domain"
)

const (
	userAgent = "Mozilla/5.0 (compatible; rssfeed/1.0; +https://github.com/mmcdole/gofeed)"

	DefaultFetchTimeout = 10 * time.Second
	maxFeedBytes        = 10 << 20
)

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a single GET without retries. Every failure wraps domain.ErrUnreachable.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrUnreachable, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %w", domain.ErrUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrUnreachable, err)
	}

	return body, nil
}
