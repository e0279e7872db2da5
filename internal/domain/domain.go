package domain

import (
	"errors"
	"time"
)

var (
	ErrUnreachable      = errors.New("feed source is unreachable")
	ErrMalformedFeed    = errors.New("malformed feed")
	ErrCacheUnavailable = errors.New("cache is unavailable")
)

// FeedItem is display-ready: text fields are already HTML-escaped and
// PublishedAt is in UTC.
type FeedItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

type AggregationConfig struct {
	Sources                []string
	ItemCount              int
	RefreshIntervalSeconds int
}

func (c AggregationConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}
