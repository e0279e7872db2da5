// Package ratelimiter spaces out requests that share a key, such as feed
// sources served from the same host.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter struct {
	interval time.Duration
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	log      *slog.Logger
}

func New(interval time.Duration, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		log:      log,
	}
}

// Wait blocks until key's next slot. Callers sharing a key are served one
// interval apart; a ctx that would expire first fails the wait immediately.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	limiter := rl.limiterFor(key)

	if limiter.Tokens() < 1 {
		rl.log.DebugContext(ctx, "Rate limiting request",
			"key", key,
			"interval", rl.interval)
	}

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for %s: %w", key, err)
	}

	return nil
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limiters[key]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok = rl.limiters[key]; ok {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Every(rl.interval), 1)
	rl.limiters[key] = limiter

	return limiter
}
