// Package cachetest is a conformance suite for simpleblog.CacheStore
// implementations.
package cachetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d, which may be negative.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Harness is a store under test. Corrupt overwrites the stored payload of
// key with bytes that do not decode as an entry.
type Harness struct {
	Store   simpleblog.CacheStore
	Corrupt func(t *testing.T, key string)
}

// Factory builds a fresh, empty store configured with opts.
type Factory func(t *testing.T, opts ...cache.Option) Harness

// Run exercises the CacheStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (Harness, *Clock) {
		clock := NewClock(start)
		return newStore(t, cache.WithClock(clock.Now)), clock
	}

	t.Run("MissOnEmpty", func(t *testing.T) {
		h, _ := setup(t)
		assert.False(t, h.Store.IsValid(ctx, "nothing"))
		content, ok := h.Store.Get(ctx, "nothing")
		assert.False(t, ok)
		assert.Empty(t, content)
	})

	t.Run("PutThenGet", func(t *testing.T) {
		h, _ := setup(t)
		h.Store.Put(ctx, "hello-world", "# Hello\n\nWorld")

		assert.True(t, h.Store.IsValid(ctx, "hello-world"))
		content, ok := h.Store.Get(ctx, "hello-world")
		assert.True(t, ok)
		assert.Equal(t, "# Hello\n\nWorld", content)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		h, clock := setup(t)
		h.Store.Put(ctx, "post", "v1")
		clock.Advance(cache.ValidityWindow - time.Hour)
		h.Store.Put(ctx, "post", "v2")
		clock.Advance(2 * time.Hour)

		content, ok := h.Store.Get(ctx, "post")
		assert.True(t, ok, "overwrite must refresh the timestamp")
		assert.Equal(t, "v2", content)
	})

	t.Run("ExpiresAfterWindow", func(t *testing.T) {
		h, clock := setup(t)
		h.Store.Put(ctx, "post", "body")

		clock.Advance(cache.ValidityWindow - time.Second)
		assert.True(t, h.Store.IsValid(ctx, "post"))

		clock.Advance(time.Second)
		assert.False(t, h.Store.IsValid(ctx, "post"))
		_, ok := h.Store.Get(ctx, "post")
		assert.False(t, ok)
	})

	t.Run("LazyExpiryKeepsEntry", func(t *testing.T) {
		h, clock := setup(t)
		h.Store.Put(ctx, "post", "body")

		clock.Advance(cache.ValidityWindow + time.Hour)
		_, ok := h.Store.Get(ctx, "post")
		require.False(t, ok)

		// Rewinding shows the expired read did not delete the entry
		clock.Advance(-(cache.ValidityWindow + time.Hour))
		content, ok := h.Store.Get(ctx, "post")
		assert.True(t, ok)
		assert.Equal(t, "body", content)
	})

	t.Run("Invalidate", func(t *testing.T) {
		h, _ := setup(t)
		h.Store.Put(ctx, "a", "A")
		h.Store.Put(ctx, "b", "B")

		h.Store.Invalidate(ctx, "a")
		assert.False(t, h.Store.IsValid(ctx, "a"))
		assert.True(t, h.Store.IsValid(ctx, "b"))

		// Absent keys are a no-op
		h.Store.Invalidate(ctx, "a")
		h.Store.Invalidate(ctx, "never-written")
		assert.False(t, h.Store.IsValid(ctx, "never-written"))
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		h, _ := setup(t)
		for i := 0; i < 5; i++ {
			h.Store.Put(ctx, fmt.Sprintf("post-%d", i), "body")
		}

		h.Store.InvalidateAll(ctx)
		for i := 0; i < 5; i++ {
			assert.False(t, h.Store.IsValid(ctx, fmt.Sprintf("post-%d", i)))
		}

		h.Store.Put(ctx, "post-0", "again")
		assert.True(t, h.Store.IsValid(ctx, "post-0"))
	})

	t.Run("UnusualKeys", func(t *testing.T) {
		h, _ := setup(t)
		keys := []string{"en:hello", "bài-viết-mới", "a/b/../c", "with space", "UPPER", "upper"}
		for _, key := range keys {
			h.Store.Put(ctx, key, "content of "+key)
		}
		for _, key := range keys {
			content, ok := h.Store.Get(ctx, key)
			assert.True(t, ok, key)
			assert.Equal(t, "content of "+key, content, key)
		}
	})

	t.Run("EmptyContent", func(t *testing.T) {
		h, _ := setup(t)
		h.Store.Put(ctx, "empty", "")
		content, ok := h.Store.Get(ctx, "empty")
		assert.True(t, ok)
		assert.Equal(t, "", content)
	})

	t.Run("CorruptEntryIsMiss", func(t *testing.T) {
		h, _ := setup(t)
		if h.Corrupt == nil {
			t.Skip("backend cannot hold corrupt payloads")
		}
		h.Store.Put(ctx, "post", "body")
		h.Corrupt(t, "post")

		assert.False(t, h.Store.IsValid(ctx, "post"))
		_, ok := h.Store.Get(ctx, "post")
		assert.False(t, ok)

		h.Store.Put(ctx, "post", "repaired")
		content, ok := h.Store.Get(ctx, "post")
		assert.True(t, ok)
		assert.Equal(t, "repaired", content)
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		h, _ := setup(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h.Store.Put(ctx, "race", "same body")
				h.Store.Get(ctx, "race")
			}(i)
		}
		wg.Wait()

		content, ok := h.Store.Get(ctx, "race")
		assert.True(t, ok)
		assert.Equal(t, "same body", content)
	})
}
