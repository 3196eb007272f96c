package simpleblog_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache/cachetest"
	cachememory "github.com/tendant/simple-blog/pkg/simpleblog/cache/memory"
	repomemory "github.com/tendant/simple-blog/pkg/simpleblog/repo/memory"
	storagememory "github.com/tendant/simple-blog/pkg/simpleblog/storage/memory"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// countingBlobStore records downloads and uploaded keys and can be told to
// fail downloads.
type countingBlobStore struct {
	simpleblog.BlobStore

	mu          sync.Mutex
	downloads   int
	downloadErr error
	uploaded    []string
}

func (c *countingBlobStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	c.mu.Lock()
	c.uploaded = append(c.uploaded, key)
	c.mu.Unlock()
	return c.BlobStore.Upload(ctx, key, reader, contentType)
}

func (c *countingBlobStore) Uploaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.uploaded...)
}

func (c *countingBlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.downloads++
	err := c.downloadErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.BlobStore.Download(ctx, key)
}

func (c *countingBlobStore) Downloads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downloads
}

type fixture struct {
	repo  simpleblog.Repository
	blobs *countingBlobStore
	cache *cachememory.Store
	clock *cachetest.Clock
	svc   simpleblog.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil)
}

// newFixtureWithRepo hands the service the memory repository passed through
// wrap, while f.repo keeps the unwrapped one for assertions.
func newFixtureWithRepo(t *testing.T, wrap func(simpleblog.Repository) simpleblog.Repository) *fixture {
	t.Helper()

	clock := cachetest.NewClock(baseTime)
	f := &fixture{
		repo:  repomemory.New(),
		blobs: &countingBlobStore{BlobStore: storagememory.NewWithURLPrefix("/media")},
		cache: cachememory.New(cache.WithClock(clock.Now)),
		clock: clock,
	}

	repo := f.repo
	if wrap != nil {
		repo = wrap(f.repo)
	}
	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithBlobStore("memory", f.blobs),
		simpleblog.WithCacheStore(f.cache),
		simpleblog.WithClock(clock.Now),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedPost stores a post with one version per entry of langs, all sharing
// slug, and uploads a body for each.
func (f *fixture) seedPost(t *testing.T, slug string, created time.Time, langs ...simpleblog.Language) (*simpleblog.Post, []*simpleblog.Version) {
	t.Helper()
	ctx := context.Background()

	post := &simpleblog.Post{ID: uuid.New(), Category: "notes", CreatedAt: created, UpdatedAt: created}
	require.NoError(t, f.repo.CreatePost(ctx, post))

	var versions []*simpleblog.Version
	for i, lang := range langs {
		v := &simpleblog.Version{
			ID:        uuid.New(),
			PostID:    post.ID,
			Language:  lang,
			Slug:      slug,
			Title:     slug + " " + lang.OrPrimary().String(),
			CreatedAt: created.Add(time.Duration(i) * time.Second),
			UpdatedAt: created,
		}
		require.NoError(t, f.repo.CreateVersion(ctx, v))
		require.NoError(t, f.blobs.Upload(ctx, simpleblog.ContentKey(v.ID),
			strings.NewReader(bodyFor(v)), "text/markdown"))
		versions = append(versions, v)
	}
	return post, versions
}

func bodyFor(v *simpleblog.Version) string {
	return "# " + v.Title + "\n\nbody of " + v.ID.String()
}

var errTransport = errors.New("connection reset by peer")

// failingVersionRepo rejects every version insert with err.
type failingVersionRepo struct {
	simpleblog.Repository
	err error
}

func (r *failingVersionRepo) CreateVersion(ctx context.Context, version *simpleblog.Version) error {
	return r.err
}

// txRepo runs InTx directly against the wrapped repository and counts calls.
type txRepo struct {
	simpleblog.Repository

	mu    sync.Mutex
	calls int
}

func (r *txRepo) InTx(ctx context.Context, fn func(simpleblog.Repository) error) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return fn(r.Repository)
}

func (r *txRepo) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
