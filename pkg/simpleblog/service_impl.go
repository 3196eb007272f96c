package simpleblog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/simpleblog/excerpt"
)

const (
	// DefaultFetchTimeout bounds a single blob download.
	DefaultFetchTimeout = 15 * time.Second

	// DescriptionLength is the rune limit of derived descriptions.
	DescriptionLength = 200

	// MaxImageSize is the largest image UploadImage accepts.
	MaxImageSize = 10 << 20

	markdownContentType = "text/markdown; charset=utf-8"
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStore    BlobStore
	backendName  string
	cache        CacheStore
	resolver     *Resolver
	fetchTimeout time.Duration
	now          func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob store holding markdown bodies and images.
// name identifies the backend in storage errors.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		s.backendName = name
		s.blobStore = store
	}
}

// WithCacheStore sets the content cache. Without one, caching is disabled.
func WithCacheStore(cache CacheStore) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithFetchTimeout bounds each blob download
func WithFetchTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.cache == nil {
		s.cache = NewNopCache()
	}
	s.resolver = NewResolver(s.repository)

	return s, nil
}

// Content operations

func (s *service) GetContent(ctx context.Context, req GetContentRequest) (*ContentResult, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		return nil, ErrInvalidSlug
	}

	version, err := s.resolver.ResolveBySlug(ctx, slug, req.Language)
	if err != nil {
		return nil, err
	}

	key := CacheKey(slug, req.Language)
	if content, ok := s.cache.Get(ctx, key); ok {
		return &ContentResult{Content: content, Cached: true, Version: version}, nil
	}

	content, err := s.downloadText(ctx, ContentKey(version.ID))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			slog.Warn("Content missing for version", "slug", slug, "version_id", version.ID)
			return nil, fmt.Errorf("%w: version %s", ErrContentNotFound, version.ID)
		}
		slog.Error("Failed to download content", "slug", slug, "version_id", version.ID, "err", err)
		return nil, err
	}

	s.cache.Put(ctx, key, content)
	return &ContentResult{Content: content, Cached: false, Version: version}, nil
}

// downloadText fetches a text object. The download is detached from the
// caller's cancellation and bounded by the fetch timeout instead.
func (s *service) downloadText(ctx context.Context, objectKey string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
	defer cancel()

	reader, err := s.blobStore.Download(fetchCtx, objectKey)
	if err != nil {
		return "", &StorageError{Backend: s.backendName, Key: objectKey, Op: "download", Err: err}
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", &StorageError{Backend: s.backendName, Key: objectKey, Op: "read", Err: err}
	}
	return string(data), nil
}

// uploadBinary stores data under path and returns its public URL. The
// object is removed again when the backend cannot publish it.
func (s *service) uploadBinary(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := s.blobStore.Upload(ctx, path, bytes.NewReader(data), contentType); err != nil {
		return "", &StorageError{Backend: s.backendName, Key: path, Op: "upload", Err: err}
	}
	url, err := s.blobStore.GetObjectURL(ctx, path)
	if err != nil {
		if delErr := s.blobStore.Delete(ctx, path); delErr != nil && !errors.Is(delErr, ErrObjectNotFound) {
			slog.Warn("Failed to remove unpublished object", "key", path, "err", delErr)
		}
		return "", &StorageError{Backend: s.backendName, Key: path, Op: "url", Err: err}
	}
	return url, nil
}

// Metadata operations

func (s *service) GetPost(ctx context.Context, req GetPostRequest) (*PostDetails, error) {
	version, err := s.resolver.ResolveBySlug(ctx, req.Slug, req.Language)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, version)
}

func (s *service) details(ctx context.Context, version *Version) (*PostDetails, error) {
	post, err := s.repository.GetPost(ctx, version.PostID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, &MetadataError{Op: "get post", Err: err}
	}

	variants, err := s.resolver.ListVariants(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	return &PostDetails{Post: post, Version: version, Variants: Variants(variants)}, nil
}

func (s *service) ListPosts(ctx context.Context, req ListPostsRequest) (*ListPostsResult, error) {
	limit := req.Limit
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	posts, err := s.repository.ListPosts(ctx, PostFilter{Category: req.Category, Hashtag: req.Hashtag})
	if err != nil {
		return nil, &MetadataError{Op: "list posts", Err: err}
	}

	page := Paginate(posts, req.Page, limit)
	lang, ok := ParseLanguage(req.Language)
	if !ok {
		lang = PrimaryLanguage
	}

	summaries := make([]*PostSummary, 0, len(page.Items))
	for _, post := range page.Items {
		summary := &PostSummary{Post: post}
		variants, err := s.resolver.ListVariants(ctx, post.ID)
		switch {
		case err == nil:
			summary.Version = PickVariant(variants, lang)
			summary.Variants = Variants(variants)
		case IsNotFound(err):
			slog.Warn("Post has no versions", "post_id", post.ID)
		default:
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return &ListPostsResult{
		Items:      summaries,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		HasMore:    page.HasMore,
	}, nil
}

func (s *service) ListVariants(ctx context.Context, identifier string) ([]*Version, error) {
	res, err := s.resolver.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return s.resolver.ListVariants(ctx, res.Version.PostID)
}

func (s *service) Resolve(ctx context.Context, identifier string) (*Resolution, error) {
	return s.resolver.ResolveByIdentifier(ctx, identifier)
}

func (s *service) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	count, err := s.repository.CountPosts(ctx, filter)
	if err != nil {
		return 0, &MetadataError{Op: "count posts", Err: err}
	}
	return count, nil
}

// Mutating operations

func (s *service) SavePost(ctx context.Context, req SavePostRequest) (*PostDetails, error) {
	lang := PrimaryLanguage
	if strings.TrimSpace(req.Language) != "" {
		var ok bool
		if lang, ok = ParseLanguage(req.Language); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, req.Language)
		}
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" || strings.ContainsAny(slug, " \t\n/?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, req.Slug)
	}
	title := excerpt.Sanitize(req.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}
	description := excerpt.Sanitize(req.Description)
	if description == "" {
		description = excerpt.FromMarkdown(req.Content, DescriptionLength)
	}

	now := s.now().UTC()

	post, created, err := s.loadOrNewPost(ctx, req.PostID, now)
	if err != nil {
		return nil, err
	}
	post.Category = strings.TrimSpace(req.Category)
	post.HashtagIDs = req.HashtagIDs
	post.Thumbnail = req.Thumbnail
	post.PublishedAt = req.PublishedAt
	post.UpdatedAt = now

	var existing *Version
	if !created {
		variants, err := s.resolver.ListVariants(ctx, post.ID)
		if err != nil && !IsNotFound(err) {
			return nil, err
		}
		for _, v := range variants {
			if v.EffectiveLanguage() == lang {
				existing = v
				break
			}
		}
	}

	holder, err := s.repository.GetVersionBySlug(ctx, slug, lang)
	switch {
	case err == nil:
		if existing == nil || holder.ID != existing.ID {
			return nil, fmt.Errorf("%w: %q (%s)", ErrSlugTaken, slug, lang)
		}
	case !IsNotFound(err):
		return nil, &MetadataError{Op: "get version by slug", Err: err}
	}

	version := &Version{
		ID:        uuid.New(),
		PostID:    post.ID,
		CreatedAt: now,
	}
	var staleKeys []string
	if existing != nil {
		version.ID = existing.ID
		version.CreatedAt = existing.CreatedAt
		staleKeys = CacheKeys(existing)
	}
	version.Language = lang
	version.Slug = slug
	version.Title = title
	version.Description = description
	version.Thumbnail = req.Thumbnail
	version.UpdatedAt = now

	contentKey := ContentKey(version.ID)
	if err := s.blobStore.Upload(ctx, contentKey, strings.NewReader(req.Content), markdownContentType); err != nil {
		slog.Error("Failed to upload content", "version_id", version.ID, "err", err)
		return nil, &StorageError{Backend: s.backendName, Key: contentKey, Op: "upload", Err: err}
	}

	if err := s.saveRecords(ctx, post, created, version, existing != nil); err != nil {
		if existing == nil {
			if delErr := s.blobStore.Delete(ctx, contentKey); delErr != nil && !errors.Is(delErr, ErrObjectNotFound) {
				slog.Warn("Failed to remove content of unsaved version", "version_id", version.ID, "err", delErr)
			}
		}
		return nil, err
	}

	for _, key := range append(staleKeys, CacheKeys(version)...) {
		s.cache.Invalidate(ctx, key)
	}

	slog.Info("Post saved", "post_id", post.ID, "version_id", version.ID, "slug", slug, "language", lang, "created", created)
	return s.details(ctx, version)
}

// saveRecords writes the post and version rows. Repositories implementing
// Transactor write both atomically; otherwise a freshly created post is
// removed again when its version cannot be stored.
func (s *service) saveRecords(ctx context.Context, post *Post, createPost bool, version *Version, updateVersion bool) error {
	write := func(repo Repository) error {
		var err error
		if createPost {
			err = repo.CreatePost(ctx, post)
		} else {
			err = repo.UpdatePost(ctx, post)
		}
		if err != nil {
			return &MetadataError{Op: "save post", Err: err}
		}

		if updateVersion {
			err = repo.UpdateVersion(ctx, version)
		} else {
			err = repo.CreateVersion(ctx, version)
		}
		if err != nil {
			return &MetadataError{Op: "save version", Err: err}
		}
		return nil
	}

	if tx, ok := s.repository.(Transactor); ok {
		return tx.InTx(ctx, write)
	}

	err := write(s.repository)
	var metaErr *MetadataError
	if err != nil && createPost && errors.As(err, &metaErr) && metaErr.Op == "save version" {
		if delErr := s.repository.DeletePost(ctx, post.ID); delErr != nil {
			slog.Error("Failed to remove post without versions", "post_id", post.ID, "err", delErr)
		}
	}
	return err
}

func (s *service) loadOrNewPost(ctx context.Context, id *uuid.UUID, now time.Time) (*Post, bool, error) {
	if id == nil {
		return &Post{ID: uuid.New(), CreatedAt: now}, true, nil
	}
	post, err := s.repository.GetPost(ctx, *id)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, ErrPostNotFound
		}
		return nil, false, &MetadataError{Op: "get post", Err: err}
	}
	return post, false, nil
}

func (s *service) DeletePost(ctx context.Context, identifier string) (*DeleteResult, error) {
	res, err := s.resolver.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	postID := res.Version.PostID

	variants, err := s.resolver.ListVariants(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := s.repository.DeletePost(ctx, postID); err != nil {
		if IsNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, &MetadataError{Op: "delete post", Err: err}
	}

	result := &DeleteResult{PostID: postID, ResolvedBy: res.Kind, VersionCount: len(variants)}
	for _, v := range variants {
		for _, key := range CacheKeys(v) {
			s.cache.Invalidate(ctx, key)
		}
		result.Slugs = append(result.Slugs, v.Slug)

		if err := s.blobStore.Delete(ctx, ContentKey(v.ID)); err != nil && !errors.Is(err, ErrObjectNotFound) {
			slog.Warn("Failed to delete content object", "version_id", v.ID, "err", err)
		}
	}
	if res.Kind == IdentifierSlug {
		s.cache.Invalidate(ctx, strings.TrimSpace(identifier))
	}

	slog.Info("Post deleted", "post_id", postID, "resolved_by", res.Kind, "versions", len(variants))
	return result, nil
}

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (*UploadImageResult, error) {
	if req.Reader == nil {
		return nil, &ValidationError{Field: "file", Message: "is required"}
	}

	data, err := io.ReadAll(io.LimitReader(req.Reader, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "is empty"}
	}
	if len(data) > MaxImageSize {
		return nil, &ValidationError{Field: "file", Message: "exceeds maximum size"}
	}

	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &ValidationError{Field: "content_type", Message: fmt.Sprintf("%s is not an image", contentType)}
	}

	key := ImageKey(req.Filename, uuid.New(), s.now())
	url, err := s.uploadBinary(ctx, key, data, contentType)
	if err != nil {
		slog.Error("Failed to upload image", "key", key, "err", err)
		return nil, err
	}

	slog.Info("Image uploaded", "key", key, "size", len(data))
	return &UploadImageResult{Key: key, URL: url, ContentType: contentType, Size: int64(len(data))}, nil
}

// Cache administration

func (s *service) InvalidateCache(ctx context.Context, slug string) {
	slug = strings.TrimSpace(slug)
	s.cache.Invalidate(ctx, slug)
	for _, lang := range Languages {
		s.cache.Invalidate(ctx, CacheKey(slug, string(lang)))
	}
}

func (s *service) PurgeCache(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
	slog.Info("Content cache purged")
}
