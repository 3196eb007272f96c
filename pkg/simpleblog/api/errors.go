package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusFor maps an error kind onto an HTTP status code.
func StatusFor(kind simpleblog.ErrorKind) int {
	switch kind {
	case simpleblog.KindMalformed:
		return http.StatusBadRequest
	case simpleblog.KindNotFound:
		return http.StatusNotFound
	case simpleblog.KindConflict:
		return http.StatusConflict
	case simpleblog.KindAuth:
		return http.StatusUnauthorized
	case simpleblog.KindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// writeError classifies err and writes the JSON error body. Upstream and
// configuration failures are logged with detail but answered generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := simpleblog.KindOf(err)
	status := StatusFor(kind)
	requestID := middleware.GetReqID(r.Context())

	message := err.Error()
	switch kind {
	case simpleblog.KindUpstream:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "request_id", requestID, "err", err)
		message = "upstream service failure"
	case simpleblog.KindConfig:
		slog.Error("Server misconfigured", "path", r.URL.Path, "request_id", requestID, "err", err)
		message = "server is not configured for this operation"
	default:
		slog.Debug("Request rejected", "path", r.URL.Path, "kind", kind, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:      kind.String(),
		Message:   message,
		RequestID: requestID,
	}})
}
