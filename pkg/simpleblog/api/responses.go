package api

import (
	"time"

	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// PostResponse is a post rendered through one of its variants
type PostResponse struct {
	ID          string   `json:"id"`
	VersionID   string   `json:"versionId,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Language    string   `json:"language,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail"`
	Category    string   `json:"category"`
	HashtagIDs  []string `json:"hashtagIds"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	PublishedAt *string  `json:"publishedAt,omitempty"`
	HasVi       bool     `json:"hasVi"`
	HasEn       bool     `json:"hasEn"`
}

// VariantResponse is one language variant of a post
type VariantResponse struct {
	VersionID   string `json:"versionId"`
	PostID      string `json:"postId"`
	Language    string `json:"language"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// ContentResponse is the markdown body of a post
type ContentResponse struct {
	Content string `json:"content"`
	Cached  bool   `json:"cached"`
}

// PaginationResponse describes the page a listing returned
type PaginationResponse struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasMore     bool `json:"hasMore"`
	Limit       int  `json:"limit"`
}

// ListPostsResponse is one page of the post listing
type ListPostsResponse struct {
	Posts      []PostResponse     `json:"posts"`
	Pagination PaginationResponse `json:"pagination"`
}

// DeleteResponse reports what a delete removed
type DeleteResponse struct {
	PostID       string   `json:"postId"`
	ResolvedBy   string   `json:"resolvedBy"`
	Slugs        []string `json:"slugs"`
	VersionCount int      `json:"versionCount"`
}

// ImageResponse locates an uploaded image
type ImageResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func newPostResponse(post *simpleblog.Post, version *simpleblog.Version, flags simpleblog.VariantFlags) PostResponse {
	resp := PostResponse{
		ID:         post.ID.String(),
		Thumbnail:  post.Thumbnail,
		Category:   post.Category,
		HashtagIDs: post.HashtagIDs,
		CreatedAt:  formatTime(post.CreatedAt),
		UpdatedAt:  formatTime(post.UpdatedAt),
		HasVi:      flags.HasVi,
		HasEn:      flags.HasEn,
	}
	if resp.HashtagIDs == nil {
		resp.HashtagIDs = []string{}
	}
	if post.PublishedAt != nil {
		published := formatTime(*post.PublishedAt)
		resp.PublishedAt = &published
	}
	if version != nil {
		resp.VersionID = version.ID.String()
		resp.Slug = version.Slug
		resp.Language = version.EffectiveLanguage().String()
		resp.Title = version.Title
		resp.Description = version.Description
		if version.Thumbnail != "" {
			resp.Thumbnail = version.Thumbnail
		}
	}
	return resp
}

func newVariantResponse(v *simpleblog.Version) VariantResponse {
	return VariantResponse{
		VersionID:   v.ID.String(),
		PostID:      v.PostID.String(),
		Language:    v.EffectiveLanguage().String(),
		Slug:        v.Slug,
		Title:       v.Title,
		Description: v.Description,
		Thumbnail:   v.Thumbnail,
		CreatedAt:   formatTime(v.CreatedAt),
		UpdatedAt:   formatTime(v.UpdatedAt),
	}
}
