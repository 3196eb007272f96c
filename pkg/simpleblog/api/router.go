package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// Routes mounts the post, image and cache handlers below one router,
// meant to be served at /api/v1.
func Routes(service simpleblog.Service, secret simpleblog.SharedSecret) chi.Router {
	r := chi.NewRouter()
	r.Mount("/posts", NewPostHandler(service, secret).Routes())
	r.Mount("/images", NewImageHandler(service, secret).Routes())
	r.Mount("/cache", NewCacheHandler(service, secret).Routes())
	return r
}
