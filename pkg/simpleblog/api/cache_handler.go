package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// CacheHandler exposes administrative cache resets
type CacheHandler struct {
	service simpleblog.Service
	secret  simpleblog.SharedSecret
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(service simpleblog.Service, secret simpleblog.SharedSecret) *CacheHandler {
	return &CacheHandler{service: service, secret: secret}
}

// Routes returns the routes for cache administration
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequireSecret(h.secret))
	r.Delete("/", h.PurgeCache)
	r.Delete("/{slug}", h.InvalidateCache)
	return r
}

// PurgeCache drops every cached body
func (h *CacheHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	h.service.PurgeCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateCache drops the cached bodies of one slug
func (h *CacheHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	h.service.InvalidateCache(r.Context(), slug)
	slog.Info("Cache invalidated", "slug", slug)
	w.WriteHeader(http.StatusNoContent)
}
