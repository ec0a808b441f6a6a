package cache

import (
	"context"
	"time"
)

// NoOpCache is a cache implementation that does nothing.
// Used when CACHE_PROVIDER=none or Redis is unavailable - all operations
// succeed but every lookup is a miss.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetAnswer(ctx context.Context, key string) (*Entry, error) {
	return nil, nil
}

func (c *NoOpCache) SetAnswer(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Flush(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
