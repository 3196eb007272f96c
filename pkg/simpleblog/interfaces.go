package simpleblog

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Repository is the metadata store holding posts and their versions.
//
// Lookups return ErrPostNotFound or ErrVersionNotFound when nothing
// matches; any other error is a store failure.
type Repository interface {
	CreatePost(ctx context.Context, post *Post) error
	UpdatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)

	// ListPosts returns every post passing filter, newest first with the
	// post identity as tie-break.
	ListPosts(ctx context.Context, filter PostFilter) ([]*Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)

	// DeletePost removes the post together with all of its versions.
	DeletePost(ctx context.Context, id uuid.UUID) error

	CreateVersion(ctx context.Context, version *Version) error
	UpdateVersion(ctx context.Context, version *Version) error
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)

	// GetVersionBySlug finds the version carrying slug. An empty lang
	// matches any language and returns the oldest match; otherwise only
	// versions whose effective language equals lang are considered.
	GetVersionBySlug(ctx context.Context, slug string, lang Language) (*Version, error)

	// ListVersionsByPost returns the versions of a post, oldest first.
	ListVersionsByPost(ctx context.Context, postID uuid.UUID) ([]*Version, error)
}

// Transactor is implemented by repositories that can run several writes
// atomically. fn receives a Repository bound to the transaction; a non-nil
// error from fn rolls every write back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repository) error) error
}

// BlobStore is the durable object store for markdown bodies and images.
// Download and Delete return an error matching ErrObjectNotFound for
// absent keys.
type BlobStore interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error

	// GetObjectURL returns a URL readers can fetch the object from.
	GetObjectURL(ctx context.Context, objectKey string) (string, error)
}

// CacheStore is a time-bounded store of markdown bodies keyed by slug.
//
// Implementations never report errors to callers: a missing, corrupt or
// expired entry is a miss, and failed writes are logged and dropped.
type CacheStore interface {
	// IsValid reports whether a fresh entry exists for key.
	IsValid(ctx context.Context, key string) bool

	// Get returns the content of a fresh entry. Expired entries are left
	// in place.
	Get(ctx context.Context, key string) (string, bool)

	// Put overwrites the entry for key, stamping it with the current time.
	Put(ctx context.Context, key string, content string)

	Invalidate(ctx context.Context, key string)
	InvalidateAll(ctx context.Context)
}
