package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// contentTyper is implemented by blob stores that remember upload types.
type contentTyper interface {
	ContentType(objectKey string) (string, bool)
}

// MediaHandler streams objects from blob stores that have no public
// endpoint of their own, such as the memory and filesystem backends.
type MediaHandler struct {
	store simpleblog.BlobStore
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store simpleblog.BlobStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.ServeObject)
	return r
}

// ServeObject streams the object named by the rest of the path
func (h *MediaHandler) ServeObject(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, r, &simpleblog.ValidationError{Field: "key", Message: "invalid object key"})
		return
	}

	reader, err := h.store.Download(r.Context(), key)
	if err != nil {
		if errors.Is(err, simpleblog.ErrObjectNotFound) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, &simpleblog.StorageError{Key: key, Op: "download", Err: err})
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if typer, ok := h.store.(contentTyper); ok {
		if ct, found := typer.ContentType(key); found && ct != "" {
			contentType = ct
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")

	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("Failed to stream media", "key", key, "err", err)
	}
}
