package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
)

const entrySuffix = ".json"

// Store is a filesystem implementation of simpleblog.CacheStore. Each entry
// is one file in Dir named after the SHA-256 of its key.
type Store struct {
	dir  string
	opts cache.Options
}

// New creates the cache directory if needed and returns a store over it
func New(dir string, opts ...cache.Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, opts: cache.Apply(opts...)}, nil
}

var _ simpleblog.CacheStore = (*Store)(nil)

// Dir returns the cache directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entrySuffix)
}

func (s *Store) lookup(key string) (cache.Entry, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read cache entry", "key", key, "err", err)
		}
		return cache.Entry{}, false
	}

	entry, err := cache.Decode(data)
	if err != nil {
		slog.Warn("Ignoring unreadable cache entry", "key", key, "err", err)
		return cache.Entry{}, false
	}
	if !s.opts.Fresh(entry.Timestamp) {
		return cache.Entry{}, false
	}
	return entry, true
}

func (s *Store) IsValid(ctx context.Context, key string) bool {
	_, ok := s.lookup(key)
	return ok
}

func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	entry, ok := s.lookup(key)
	if !ok {
		return "", false
	}
	return string(entry.Content), true
}

// Put writes the entry to a temporary file and renames it over the old one,
// so concurrent readers see either the previous or the new entry.
func (s *Store) Put(ctx context.Context, key string, content string) {
	if err := s.write(key, content); err != nil {
		slog.Warn("Failed to write cache entry", "key", key, "err", err)
	}
}

func (s *Store) write(key string, content string) error {
	data, err := cache.Encode(cache.Entry{Content: []byte(content), Timestamp: s.opts.Now()})
	if err != nil {
		return err
	}

	file, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return err
	}
	tmpName := file.Name()
	defer os.Remove(tmpName)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path(key))
}

func (s *Store) Invalidate(ctx context.Context, key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove cache entry", "key", key, "err", err)
	}
}

func (s *Store) InvalidateAll(ctx context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("Failed to list cache directory", "dir", s.dir, "err", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entrySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove cache entry", "file", e.Name(), "err", err)
		}
	}
}
