package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	cachememory "github.com/tendant/simple-blog/pkg/simpleblog/cache/memory"
	"github.com/tendant/simple-blog/pkg/simpleblog/repo/memory"
	memorystorage "github.com/tendant/simple-blog/pkg/simpleblog/storage/memory"
)

const testSecret = "let-me-in"

type testServer struct {
	router  chi.Router
	service simpleblog.Service
	blobs   simpleblog.BlobStore
}

func setupTestServer(t *testing.T, secret simpleblog.SharedSecret) *testServer {
	t.Helper()

	blobs := memorystorage.NewWithURLPrefix("/media")
	service, err := simpleblog.New(
		simpleblog.WithRepository(memory.New()),
		simpleblog.WithBlobStore("memory", blobs),
		simpleblog.WithCacheStore(cachememory.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Mount("/api/v1", Routes(service, secret))
	r.Mount("/media", NewMediaHandler(blobs).Routes())
	return &testServer{router: r, service: service, blobs: blobs}
}

func (s *testServer) do(t *testing.T, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createPost(t *testing.T, body SavePostBody) PostResponse {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/v1/posts", data, map[string]string{SecretHeader: testSecret})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp PostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestPostHandler_ContentRoundTrip(t *testing.T) {
	s := setupTestServer(t, testSecret)
	created := s.createPost(t, SavePostBody{
		Slug:       "hello-world",
		Title:      "Hello world",
		Category:   "intro",
		HashtagIDs: []string{"go"},
		Content:    "First paragraph.\n\nSecond.",
	})
	assert.Equal(t, "hello-world", created.Slug)
	assert.Equal(t, "vi", created.Language)
	assert.Equal(t, "First paragraph.", created.Description)
	assert.True(t, created.HasVi)
	assert.False(t, created.HasEn)

	for i, wantCached := range []bool{false, true} {
		w := s.do(t, http.MethodGet, "/api/v1/posts/hello-world/content", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)

		var resp ContentResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "First paragraph.\n\nSecond.", resp.Content)
		assert.Equal(t, wantCached, resp.Cached)
	}
}

func TestPostHandler_GetPost(t *testing.T) {
	s := setupTestServer(t, testSecret)
	published := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	created := s.createPost(t, SavePostBody{Slug: "meta", Title: "Meta", Category: "notes", PublishedAt: &published, Content: "x"})

	w := s.do(t, http.MethodGet, "/api/v1/posts/meta", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp PostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, "notes", resp.Category)
	assert.Equal(t, []string{}, resp.HashtagIDs)
	require.NotNil(t, resp.PublishedAt)
	assert.Equal(t, "2024-06-01T01:00:00Z", *resp.PublishedAt)

	_, err := time.Parse(time.RFC3339, resp.CreatedAt)
	assert.NoError(t, err)
}

func TestPostHandler_Errors(t *testing.T) {
	s := setupTestServer(t, testSecret)
	s.createPost(t, SavePostBody{Slug: "exists", Title: "Exists", Content: "x"})

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{name: "unknown slug", method: http.MethodGet, target: "/api/v1/posts/nope", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "unknown content", method: http.MethodGet, target: "/api/v1/posts/nope/content", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "unknown variants", method: http.MethodGet, target: "/api/v1/posts/nope/variants", wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "missing secret", method: http.MethodPost, target: "/api/v1/posts", body: `{"slug":"a","title":"A"}`, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "wrong secret", method: http.MethodDelete, target: "/api/v1/posts/exists", headers: map[string]string{SecretHeader: "nope"}, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "bad json", method: http.MethodPost, target: "/api/v1/posts", body: `{`, headers: map[string]string{SecretHeader: testSecret}, wantStatus: http.StatusBadRequest, wantCode: "malformed_input"},
		{name: "slug conflict", method: http.MethodPost, target: "/api/v1/posts", body: `{"slug":"exists","title":"Again"}`, headers: map[string]string{SecretHeader: testSecret}, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "update needs post id", method: http.MethodPut, target: "/api/v1/posts/exists", body: `{"slug":"exists","title":"X"}`, headers: map[string]string{"Authorization": "Bearer " + testSecret}, wantStatus: http.StatusBadRequest, wantCode: "malformed_input"},
		{name: "bad language", method: http.MethodPost, target: "/api/v1/posts", body: `{"slug":"b","title":"B","language":"xx"}`, headers: map[string]string{SecretHeader: testSecret}, wantStatus: http.StatusBadRequest, wantCode: "malformed_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			w := s.do(t, tt.method, tt.target, body, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			errBody := decodeError(t, w)
			assert.Equal(t, tt.wantCode, errBody.Code)
			assert.NotEmpty(t, errBody.RequestID)
		})
	}
}

func TestRequireSecret_NotConfigured(t *testing.T) {
	s := setupTestServer(t, "")

	w := s.do(t, http.MethodDelete, "/api/v1/cache", nil, map[string]string{SecretHeader: "anything"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "server_misconfigured", decodeError(t, w).Code)

	// Reads stay public
	w = s.do(t, http.MethodGet, "/api/v1/posts", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostHandler_ListPosts(t *testing.T) {
	s := setupTestServer(t, testSecret)
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		s.createPost(t, SavePostBody{Slug: slug, Title: strings.ToUpper(slug), Category: "letters", Content: slug})
	}

	w := s.do(t, http.MethodGet, "/api/v1/posts?page=2&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Posts, 2)
	assert.Equal(t, PaginationResponse{CurrentPage: 2, TotalPages: 3, TotalItems: 5, HasMore: true, Limit: 2}, resp.Pagination)

	w = s.do(t, http.MethodGet, "/api/v1/posts?page=9&limit=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Posts)
	assert.NotNil(t, resp.Posts)
	assert.False(t, resp.Pagination.HasMore)

	w = s.do(t, http.MethodGet, "/api/v1/posts?page=1024819115206086202&limit=9", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var huge ListPostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &huge))
	assert.Empty(t, huge.Posts)
	assert.Equal(t, 5, huge.Pagination.TotalItems)
	assert.Equal(t, 1, huge.Pagination.TotalPages)
	assert.False(t, huge.Pagination.HasMore)

	w = s.do(t, http.MethodGet, "/api/v1/posts?category=other", nil, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Pagination.TotalItems)
	assert.Equal(t, 0, resp.Pagination.TotalPages)
}

func TestPostHandler_VariantsUpdateAndDelete(t *testing.T) {
	s := setupTestServer(t, testSecret)
	auth := map[string]string{SecretHeader: testSecret}
	created := s.createPost(t, SavePostBody{Slug: "xin-chao", Title: "Xin chào", Content: "vi body"})

	body, err := json.Marshal(SavePostBody{Language: "en", Slug: "hello", Title: "Hello", Content: "en body"})
	require.NoError(t, err)
	w := s.do(t, http.MethodPut, "/api/v1/posts/"+created.ID, body, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/posts/"+created.ID+"/variants", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var variants []VariantResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &variants))
	require.Len(t, variants, 2)
	assert.Equal(t, "vi", variants[0].Language)
	assert.Equal(t, "en", variants[1].Language)

	w = s.do(t, http.MethodGet, "/api/v1/posts/hello/content?lang=en", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/posts/"+variants[1].VersionID, nil, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var deleted DeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deleted))
	assert.Equal(t, created.ID, deleted.PostID)
	assert.Equal(t, "version_id", deleted.ResolvedBy)
	assert.Equal(t, 2, deleted.VersionCount)
	assert.ElementsMatch(t, []string{"xin-chao", "hello"}, deleted.Slugs)

	w = s.do(t, http.MethodGet, "/api/v1/posts/hello/content?lang=en", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCacheHandler(t *testing.T) {
	s := setupTestServer(t, testSecret)
	auth := map[string]string{SecretHeader: testSecret}
	s.createPost(t, SavePostBody{Slug: "warm", Title: "Warm", Content: "x"})

	s.do(t, http.MethodGet, "/api/v1/posts/warm/content", nil, nil)
	res, err := s.service.GetContent(context.Background(), simpleblog.GetContentRequest{Slug: "warm"})
	require.NoError(t, err)
	require.True(t, res.Cached)

	w := s.do(t, http.MethodDelete, "/api/v1/cache/warm", nil, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)
	res, err = s.service.GetContent(context.Background(), simpleblog.GetContentRequest{Slug: "warm"})
	require.NoError(t, err)
	assert.False(t, res.Cached)

	w = s.do(t, http.MethodDelete, "/api/v1/cache", nil, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)
	res, err = s.service.GetContent(context.Background(), simpleblog.GetContentRequest{Slug: "warm"})
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func multipartImage(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImageHandler_UploadAndServe(t *testing.T) {
	s := setupTestServer(t, testSecret)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 64)...)

	body, contentType := multipartImage(t, "cover.png", "image/png", png)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SecretHeader, testSecret)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp ImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, "/media/"+resp.Key, resp.URL)

	w = s.do(t, http.MethodGet, resp.URL, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())

	w = s.do(t, http.MethodGet, "/media/images/missing.png", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageHandler_Rejections(t *testing.T) {
	s := setupTestServer(t, testSecret)

	body, contentType := multipartImage(t, "notes.txt", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SecretHeader, testSecret)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/images", strings.NewReader("not multipart"))
	req.Header.Set(SecretHeader, testSecret)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind simpleblog.ErrorKind
		want int
	}{
		{simpleblog.KindMalformed, http.StatusBadRequest},
		{simpleblog.KindNotFound, http.StatusNotFound},
		{simpleblog.KindConflict, http.StatusConflict},
		{simpleblog.KindAuth, http.StatusUnauthorized},
		{simpleblog.KindConfig, http.StatusInternalServerError},
		{simpleblog.KindUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestStatusFor_DuplicateLanguageIsConflict(t *testing.T) {
	err := &simpleblog.MetadataError{Op: "save version", Err: simpleblog.ErrVariantExists}
	assert.Equal(t, http.StatusConflict, StatusFor(simpleblog.KindOf(err)))
}

func TestCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "header", headers: map[string]string{SecretHeader: " s "}, want: "s"},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer tok"}, want: "tok"},
		{name: "lowercase bearer", headers: map[string]string{"Authorization": "bearer tok"}, want: "tok"},
		{name: "header wins", headers: map[string]string{SecretHeader: "a", "Authorization": "Bearer b"}, want: "a"},
		{name: "basic ignored", headers: map[string]string{"Authorization": "Basic abc"}, want: ""},
		{name: "none", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, credential(req))
		})
	}
}

func TestPublicCORS(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PublicCORS([]string{"https://blog.example"}))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://blog.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://blog.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
