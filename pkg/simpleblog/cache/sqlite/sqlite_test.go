package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache/cachetest"
)

func TestStore_Conformance(t *testing.T) {
	cachetest.Run(t, func(t *testing.T, opts ...cache.Option) cachetest.Harness {
		store, err := Open(filepath.Join(t.TempDir(), "cache.db"), opts...)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return cachetest.Harness{
			Store: store,
			Corrupt: func(t *testing.T, key string) {
				_, err := store.db.Exec(`UPDATE cache_entries SET payload = ? WHERE key = ?`, []byte{0xff, 0x00}, key)
				require.NoError(t, err)
			},
		}
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "cache.db")

	store, err := Open(path)
	require.NoError(t, err)
	store.Put(ctx, "post", "body")
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	content, ok := reopened.Get(ctx, "post")
	assert.True(t, ok)
	assert.Equal(t, "body", content)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
