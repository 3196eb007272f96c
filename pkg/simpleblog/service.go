package simpleblog

import (
	"context"
)

// Service is the main interface for reading and managing blog content
type Service interface {
	// GetContent returns the markdown body for a slug, from cache when fresh.
	GetContent(ctx context.Context, req GetContentRequest) (*ContentResult, error)

	// Metadata operations
	GetPost(ctx context.Context, req GetPostRequest) (*PostDetails, error)
	ListPosts(ctx context.Context, req ListPostsRequest) (*ListPostsResult, error)
	ListVariants(ctx context.Context, identifier string) ([]*Version, error)
	Resolve(ctx context.Context, identifier string) (*Resolution, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)

	// Mutating operations
	SavePost(ctx context.Context, req SavePostRequest) (*PostDetails, error)
	DeletePost(ctx context.Context, identifier string) (*DeleteResult, error)
	UploadImage(ctx context.Context, req UploadImageRequest) (*UploadImageResult, error)

	// Cache administration
	InvalidateCache(ctx context.Context, slug string)
	PurgeCache(ctx context.Context)
}
