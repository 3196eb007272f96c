package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tendant/simple-blog/pkg/simpleblog"
)

// Backend is an in-memory implementation of the simpleblog.BlobStore interface
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	urlPrefix    string
}

// New creates a new in-memory storage backend without public URLs
func New() simpleblog.BlobStore {
	return NewWithURLPrefix("")
}

// NewWithURLPrefix creates an in-memory backend whose objects are published
// under urlPrefix, typically the server's media route.
func NewWithURLPrefix(urlPrefix string) simpleblog.BlobStore {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
		urlPrefix:    strings.TrimRight(urlPrefix, "/"),
	}
}

// Upload stores the reader's content under objectKey, replacing any existing object
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.contentTypes[objectKey] = contentType
	return nil
}

// Download returns a reader over a copy of the stored object
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("%w: %s", simpleblog.ErrObjectNotFound, objectKey)
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return fmt.Errorf("%w: %s", simpleblog.ErrObjectNotFound, objectKey)
	}

	delete(b.objects, objectKey)
	delete(b.contentTypes, objectKey)
	return nil
}

// GetObjectURL returns the published URL of the object
func (b *Backend) GetObjectURL(ctx context.Context, objectKey string) (string, error) {
	if b.urlPrefix == "" {
		return "memory://" + objectKey, nil
	}
	return b.urlPrefix + "/" + objectKey, nil
}

// ContentType returns the content type recorded at upload time
func (b *Backend) ContentType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	contentType, ok := b.contentTypes[objectKey]
	return contentType, ok
}
