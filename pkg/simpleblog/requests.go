package simpleblog

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// GetContentRequest asks for the markdown body behind a slug.
type GetContentRequest struct {
	Slug     string
	Language string
}

// ContentResult is the body of a resolved version.
type ContentResult struct {
	Content string
	Cached  bool
	Version *Version
}

// GetPostRequest asks for the metadata behind a slug.
type GetPostRequest struct {
	Slug     string
	Language string
}

// PostDetails is a post together with one resolved variant.
type PostDetails struct {
	Post     *Post
	Version  *Version
	Variants VariantFlags
}

// ListPostsRequest selects a page of the post listing.
type ListPostsRequest struct {
	Page     int
	Limit    int
	Language string
	Category string
	Hashtag  string
}

// PostSummary is one entry of a listing page. Version is the variant in the
// requested language, falling back to the first available variant.
type PostSummary struct {
	Post     *Post
	Version  *Version
	Variants VariantFlags
}

// ListPostsResult is a listing page.
type ListPostsResult = Page[*PostSummary]

// SavePostRequest creates or updates one language variant of a post. A nil
// PostID creates a new post.
type SavePostRequest struct {
	PostID      *uuid.UUID
	Language    string
	Slug        string
	Title       string
	Description string
	Thumbnail   string
	Category    string
	HashtagIDs  []string
	PublishedAt *time.Time
	Content     string
}

// DeleteResult describes what a delete removed.
type DeleteResult struct {
	PostID       uuid.UUID
	ResolvedBy   IdentifierKind
	Slugs        []string
	VersionCount int
}

// UploadImageRequest carries an image to store in the blob store.
type UploadImageRequest struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// UploadImageResult locates a stored image.
type UploadImageResult struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}
