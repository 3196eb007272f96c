package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// maxPostBodySize bounds the JSON body of a save request.
const maxPostBodySize = 4 << 20

// SavePostBody is the request body for creating or updating a post variant
type SavePostBody struct {
	Language    string     `json:"language"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail"`
	Category    string     `json:"category"`
	HashtagIDs  []string   `json:"hashtagIds"`
	PublishedAt *time.Time `json:"publishedAt"`
	Content     string     `json:"content"`
}

// PostHandler serves the post listing, metadata, content and mutations
type PostHandler struct {
	service simpleblog.Service
	secret  simpleblog.SharedSecret
}

// NewPostHandler creates a new post handler
func NewPostHandler(service simpleblog.Service, secret simpleblog.SharedSecret) *PostHandler {
	return &PostHandler{service: service, secret: secret}
}

// Routes returns the routes for posts. Every route below the root shares
// the {identifier} parameter: reads treat it as a slug, variants and
// delete accept any identifier form, updates require a post identity.
func (h *PostHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPosts)
	r.Get("/{identifier}", h.GetPost)
	r.Get("/{identifier}/content", h.GetContent)
	r.Get("/{identifier}/variants", h.ListVariants)

	r.Group(func(r chi.Router) {
		r.Use(RequireSecret(h.secret))
		r.Post("/", h.CreatePost)
		r.Put("/{identifier}", h.UpdatePost)
		r.Delete("/{identifier}", h.DeletePost)
	})

	return r
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

// ListPosts returns a page of the listing
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.ListPosts(r.Context(), simpleblog.ListPostsRequest{
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
		Language: q.Get("lang"),
		Category: q.Get("category"),
		Hashtag:  q.Get("hashtag"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := ListPostsResponse{
		Posts: make([]PostResponse, 0, len(res.Items)),
		Pagination: PaginationResponse{
			CurrentPage: res.Page,
			TotalPages:  res.TotalPages,
			TotalItems:  res.TotalItems,
			HasMore:     res.HasMore,
			Limit:       res.PageSize,
		},
	}
	for _, item := range res.Items {
		resp.Posts = append(resp.Posts, newPostResponse(item.Post, item.Version, item.Variants))
	}
	render.JSON(w, r, resp)
}

// GetPost returns the metadata behind a slug
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetPost(r.Context(), simpleblog.GetPostRequest{
		Slug:     chi.URLParam(r, "identifier"),
		Language: r.URL.Query().Get("lang"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, newPostResponse(details.Post, details.Version, details.Variants))
}

// GetContent returns the markdown body behind a slug
func (h *PostHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetContent(r.Context(), simpleblog.GetContentRequest{
		Slug:     chi.URLParam(r, "identifier"),
		Language: r.URL.Query().Get("lang"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, ContentResponse{Content: res.Content, Cached: res.Cached})
}

// ListVariants returns every language variant of the identified post
func (h *PostHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.service.ListVariants(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]VariantResponse, 0, len(variants))
	for _, v := range variants {
		resp = append(resp, newVariantResponse(v))
	}
	render.JSON(w, r, resp)
}

func decodeSaveBody(r *http.Request, w http.ResponseWriter) (*SavePostBody, error) {
	var body SavePostBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPostBodySize))
	if err := dec.Decode(&body); err != nil {
		return nil, &simpleblog.ValidationError{Field: "body", Message: err.Error()}
	}
	return &body, nil
}

func (b *SavePostBody) request(postID *uuid.UUID) simpleblog.SavePostRequest {
	return simpleblog.SavePostRequest{
		PostID:      postID,
		Language:    b.Language,
		Slug:        b.Slug,
		Title:       b.Title,
		Description: b.Description,
		Thumbnail:   b.Thumbnail,
		Category:    b.Category,
		HashtagIDs:  b.HashtagIDs,
		PublishedAt: b.PublishedAt,
		Content:     b.Content,
	}
}

// CreatePost creates a new post with its first variant
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	body, err := decodeSaveBody(r, w)
	if err != nil {
		writeError(w, r, err)
		return
	}

	details, err := h.service.SavePost(r.Context(), body.request(nil))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newPostResponse(details.Post, details.Version, details.Variants))
}

// UpdatePost creates or replaces one language variant of an existing post
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "identifier")
	postID, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: post id %q", simpleblog.ErrInvalidIdentifier, idStr))
		return
	}

	body, err := decodeSaveBody(r, w)
	if err != nil {
		writeError(w, r, err)
		return
	}

	details, err := h.service.SavePost(r.Context(), body.request(&postID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, newPostResponse(details.Post, details.Version, details.Variants))
}

// DeletePost deletes a post and all of its variants
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(chi.URLParam(r, "identifier"))
	res, err := h.service.DeletePost(r.Context(), identifier)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("Post deleted via API", "identifier", identifier, "post_id", res.PostID)
	render.JSON(w, r, DeleteResponse{
		PostID:       res.PostID.String(),
		ResolvedBy:   res.ResolvedBy.String(),
		Slugs:        res.Slugs,
		VersionCount: res.VersionCount,
	})
}
