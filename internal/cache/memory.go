package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (b *MemoryBackend) GetCacheValue(_ context.Context, key string, now time.Time) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[key]
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.After(now) {
		delete(b.entries, key)

		return nil, false, nil
	}

	return bytes.Clone(entry.value), true, nil
}

func (b *MemoryBackend) ReplaceCacheValue(
	_ context.Context,
	key string,
	value []byte,
	now time.Time,
	ttl time.Duration,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{
		value:     bytes.Clone(value),
		expiresAt: now.Add(ttl),
	}

	return nil
}
