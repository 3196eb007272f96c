package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
)

// Store is an in-memory implementation of simpleblog.CacheStore. Entries
// are held encoded so they follow the same decode path as persistent
// backends.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
	opts    cache.Options
}

// New creates an empty in-memory cache store
func New(opts ...cache.Option) *Store {
	return &Store{
		entries: make(map[string][]byte),
		opts:    cache.Apply(opts...),
	}
}

var _ simpleblog.CacheStore = (*Store)(nil)

func (s *Store) lookup(key string) (cache.Entry, bool) {
	s.mu.RLock()
	data, exists := s.entries[key]
	s.mu.RUnlock()
	if !exists {
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

func (s *Store) Put(ctx context.Context, key string, content string) {
	data, err := cache.Encode(cache.Entry{Content: []byte(content), Timestamp: s.opts.Now()})
	if err != nil {
		slog.Warn("Failed to encode cache entry", "key", key, "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data
}

func (s *Store) Invalidate(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *Store) InvalidateAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]byte)
}

// Len returns the number of stored entries, fresh or expired.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
