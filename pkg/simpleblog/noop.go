package simpleblog

import (
	"context"
)

// NopCache is a CacheStore that never holds anything. Every lookup misses.
type NopCache struct{}

// NewNopCache creates a cache store that disables caching
func NewNopCache() CacheStore {
	return NopCache{}
}

func (NopCache) IsValid(ctx context.Context, key string) bool { return false }

func (NopCache) Get(ctx context.Context, key string) (string, bool) { return "", false }

func (NopCache) Put(ctx context.Context, key string, content string) {}

func (NopCache) Invalidate(ctx context.Context, key string) {}

func (NopCache) InvalidateAll(ctx context.Context) {}
