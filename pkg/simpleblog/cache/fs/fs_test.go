package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache/cachetest"
)

func TestStore_Conformance(t *testing.T) {
	cachetest.Run(t, func(t *testing.T, opts ...cache.Option) cachetest.Harness {
		store, err := New(t.TempDir(), opts...)
		require.NoError(t, err)
		return cachetest.Harness{
			Store: store,
			Corrupt: func(t *testing.T, key string) {
				require.NoError(t, os.WriteFile(store.path(key), []byte(`{"content":"%%%","timestamp":1}`), 0644))
			},
		}
	})
}

func TestStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_InvalidateAllLeavesForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	foreign := filepath.Join(dir, "README")
	require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0644))
	store.Put(ctx, "post", "body")

	store.InvalidateAll(ctx)
	assert.False(t, store.IsValid(ctx, "post"))
	_, err = os.Stat(foreign)
	assert.NoError(t, err)
}

func TestStore_UnreadableDirectoryIsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	// A directory where the entry file should be cannot be read or replaced
	require.NoError(t, os.Mkdir(store.path("post"), 0755))

	store.Put(ctx, "post", "body")
	assert.False(t, store.IsValid(ctx, "post"))
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
