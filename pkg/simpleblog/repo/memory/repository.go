package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// Repository implements simpleblog.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	posts    map[uuid.UUID]*simpleblog.Post
	versions map[uuid.UUID]*simpleblog.Version
	byPost   map[uuid.UUID][]uuid.UUID // post_id -> []version_id
}

// New creates a new in-memory repository
func New() simpleblog.Repository {
	return &Repository{
		posts:    make(map[uuid.UUID]*simpleblog.Post),
		versions: make(map[uuid.UUID]*simpleblog.Version),
		byPost:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *simpleblog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}
	r.posts[post.ID] = copyPost(post)
	return nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simpleblog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; !exists {
		return simpleblog.ErrPostNotFound
	}
	r.posts[post.ID] = copyPost(post)
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, simpleblog.ErrPostNotFound
	}
	return copyPost(post), nil
}

func (r *Repository) ListPosts(ctx context.Context, filter simpleblog.PostFilter) ([]*simpleblog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simpleblog.Post, 0, len(r.posts))
	for _, post := range r.posts {
		if filter.Match(post) {
			result = append(result, copyPost(post))
		}
	}

	// Newest first; identity breaks ties so the order is stable across calls
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return result, nil
}

func (r *Repository) CountPosts(ctx context.Context, filter simpleblog.PostFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, post := range r.posts {
		if filter.Match(post) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return simpleblog.ErrPostNotFound
	}
	for _, versionID := range r.byPost[id] {
		delete(r.versions, versionID)
	}
	delete(r.byPost, id)
	delete(r.posts, id)
	return nil
}

// Version operations

func (r *Repository) CreateVersion(ctx context.Context, version *simpleblog.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[version.PostID]; !exists {
		return simpleblog.ErrPostNotFound
	}
	if _, exists := r.versions[version.ID]; exists {
		return fmt.Errorf("version %s already exists", version.ID)
	}
	if err := r.checkUnique(version); err != nil {
		return err
	}

	r.versions[version.ID] = copyVersion(version)
	r.byPost[version.PostID] = append(r.byPost[version.PostID], version.ID)
	return nil
}

func (r *Repository) UpdateVersion(ctx context.Context, version *simpleblog.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.versions[version.ID]
	if !exists {
		return simpleblog.ErrVersionNotFound
	}
	if current.PostID != version.PostID {
		return fmt.Errorf("version %s belongs to post %s", version.ID, current.PostID)
	}
	if err := r.checkUnique(version); err != nil {
		return err
	}

	r.versions[version.ID] = copyVersion(version)
	return nil
}

// checkUnique enforces one version per language per post and one slug per
// language. Caller must hold the write lock.
func (r *Repository) checkUnique(version *simpleblog.Version) error {
	lang := version.EffectiveLanguage()
	for _, other := range r.versions {
		if other.ID == version.ID || other.EffectiveLanguage() != lang {
			continue
		}
		if other.Slug == version.Slug {
			return fmt.Errorf("%w: %q (%s)", simpleblog.ErrSlugTaken, version.Slug, lang)
		}
		if other.PostID == version.PostID {
			return fmt.Errorf("%w: post %s (%s)", simpleblog.ErrVariantExists, version.PostID, lang)
		}
	}
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, id uuid.UUID) (*simpleblog.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, exists := r.versions[id]
	if !exists {
		return nil, simpleblog.ErrVersionNotFound
	}
	return copyVersion(version), nil
}

func (r *Repository) GetVersionBySlug(ctx context.Context, slug string, lang simpleblog.Language) (*simpleblog.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match *simpleblog.Version
	for _, version := range r.versions {
		if version.Slug != slug {
			continue
		}
		if lang != "" && version.EffectiveLanguage() != lang {
			continue
		}
		if match == nil || older(version, match) {
			match = version
		}
	}
	if match == nil {
		return nil, simpleblog.ErrVersionNotFound
	}
	return copyVersion(match), nil
}

func (r *Repository) ListVersionsByPost(ctx context.Context, postID uuid.UUID) ([]*simpleblog.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simpleblog.Version, 0, len(r.byPost[postID]))
	for _, versionID := range r.byPost[postID] {
		result = append(result, copyVersion(r.versions[versionID]))
	}
	sort.Slice(result, func(i, j int) bool {
		return older(result[i], result[j])
	})
	return result, nil
}

func older(a, b *simpleblog.Version) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func copyPost(post *simpleblog.Post) *simpleblog.Post {
	postCopy := *post
	if post.HashtagIDs != nil {
		postCopy.HashtagIDs = append([]string(nil), post.HashtagIDs...)
	}
	if post.PublishedAt != nil {
		publishedAt := *post.PublishedAt
		postCopy.PublishedAt = &publishedAt
	}
	return &postCopy
}

func copyVersion(version *simpleblog.Version) *simpleblog.Version {
	versionCopy := *version
	return &versionCopy
}
