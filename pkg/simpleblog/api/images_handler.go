package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// ImageHandler accepts multipart image uploads
type ImageHandler struct {
	service simpleblog.Service
	secret  simpleblog.SharedSecret
}

// NewImageHandler creates a new image handler
func NewImageHandler(service simpleblog.Service, secret simpleblog.SharedSecret) *ImageHandler {
	return &ImageHandler{service: service, secret: secret}
}

// Routes returns the routes for images
func (h *ImageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequireSecret(h.secret))
	r.Post("/", h.UploadImage)
	return r
}

// UploadImage stores the "file" part of a multipart form
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, simpleblog.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, &simpleblog.ValidationError{Field: "file", Message: "exceeds maximum size"})
			return
		}
		writeError(w, r, &simpleblog.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, &simpleblog.ValidationError{Field: "file", Message: "is required"})
		return
	}
	defer file.Close()

	res, err := h.service.UploadImage(r.Context(), simpleblog.UploadImageRequest{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ImageResponse{Key: res.Key, URL: res.URL, ContentType: res.ContentType, Size: res.Size})
}
