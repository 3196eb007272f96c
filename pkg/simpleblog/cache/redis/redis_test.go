package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache/cachetest"
)

// Tests run against a live server when TEST_REDIS_URL is set, for example
// redis://localhost:6379/15. Every test uses its own key prefix.
func redisURL(t *testing.T) string {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	return url
}

func TestStore_Conformance(t *testing.T) {
	url := redisURL(t)

	cachetest.Run(t, func(t *testing.T, opts ...cache.Option) cachetest.Harness {
		store, err := Dial(context.Background(), url, Config{Prefix: "test:" + uuid.NewString() + ":"}, opts...)
		require.NoError(t, err)
		t.Cleanup(func() {
			store.InvalidateAll(context.Background())
			store.Close()
		})
		return cachetest.Harness{
			Store: store,
			Corrupt: func(t *testing.T, key string) {
				require.NoError(t, store.client.Set(context.Background(), store.prefix+key, "not json", 0).Err())
			},
		}
	})
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := Dial(context.Background(), "http://localhost", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestNew_DefaultPrefix(t *testing.T) {
	store := New(nil, Config{})
	assert.Equal(t, DefaultPrefix, store.prefix)
}
