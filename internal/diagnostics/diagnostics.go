// Package diagnostics records aggregation and cache events to an append-only log
// and to Prometheus counters.
package diagnostics

import (
	"context"
	"io"
	"log/slog"
	"time"

	"rssfeed/internal/metrics"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	TimestampLayout = "2006-01-02 15:04:05"

	logMaxSizeMB = 16
	reasonFetch  = "fetch"
	reasonParse  = "parse"
	resultHit    = "hit"
	resultMiss   = "miss"
	resultError  = "error"
	statusOK     = "ok"
	statusFailed = "failed"
)

type Sink struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Sink {
	return &Sink{log: log}
}

func Discard() *Sink {
	return New(slog.New(slog.DiscardHandler))
}

// NewLogger writes one text line per event, prefixed with a local timestamp.
// Write errors from w are swallowed by slog and never reach the caller.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(TimestampLayout))
			}

			return a
		},
	}))
}

// NewFileLogger rotates by size and keeps every rotated file.
func NewFileLogger(path string) (*slog.Logger, io.Closer) {
	w := &lumberjack.Logger{
		Filename: path,
		MaxSize:  logMaxSizeMB,
	}

	return NewLogger(w), w
}

func (s *Sink) FetchFailed(ctx context.Context, source string, err error) {
	metrics.SourceFailuresTotal.WithLabelValues(reasonFetch).Inc()

	s.log.WarnContext(ctx, "Failed to fetch feed",
		"error", err,
		"source", source)
}

func (s *Sink) ParseFailed(ctx context.Context, source string, err error) {
	metrics.SourceFailuresTotal.WithLabelValues(reasonParse).Inc()

	s.log.WarnContext(ctx, "Failed to parse feed",
		"error", err,
		"source", source)
}

func (s *Sink) CacheHit(ctx context.Context, key string) {
	metrics.CacheLookupsTotal.WithLabelValues(resultHit).Inc()

	s.log.InfoContext(ctx, "Cache is read",
		"cacheKey", key)
}

func (s *Sink) CacheMiss(ctx context.Context, key string) {
	metrics.CacheLookupsTotal.WithLabelValues(resultMiss).Inc()

	s.log.InfoContext(ctx, "Cache is missing or expired",
		"cacheKey", key)
}

func (s *Sink) CacheReadFailed(ctx context.Context, key string, err error) {
	metrics.CacheLookupsTotal.WithLabelValues(resultError).Inc()

	s.log.ErrorContext(ctx, "Failed to read cache so aggregation is forced",
		"error", err,
		"cacheKey", key)
}

func (s *Sink) CacheWritten(ctx context.Context, key string, itemCount int, expiresAt time.Time) {
	metrics.CacheWritesTotal.WithLabelValues(statusOK).Inc()

	s.log.InfoContext(ctx, "Cache is written",
		"cacheKey", key,
		"itemCount", itemCount,
		"expiresAt", expiresAt.Format(TimestampLayout))
}

func (s *Sink) CacheWriteFailed(ctx context.Context, key string, err error) {
	metrics.CacheWritesTotal.WithLabelValues(statusFailed).Inc()

	s.log.ErrorContext(ctx, "Failed to write cache",
		"error", err,
		"cacheKey", key)
}

func (s *Sink) Aggregated(ctx context.Context, sourceCount int, itemCount int, took time.Duration) {
	metrics.AggregationDuration.Observe(took.Seconds())
	metrics.AggregatedItems.Observe(float64(itemCount))

	s.log.DebugContext(ctx, "Feeds are aggregated",
		"sourceCount", sourceCount,
		"itemCount", itemCount,
		"tookSeconds", took.Seconds())
}
