package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
)

// DefaultPrefix namespaces cache keys inside a shared Redis database.
const DefaultPrefix = "simpleblog:content:"

// Config options for the Redis cache store
type Config struct {
	Prefix string

	// Retention lets Redis evict entries on its own once they are this old.
	// Zero keeps entries until they are overwritten or invalidated. It
	// should be longer than the validity window.
	Retention time.Duration
}

// Store is a Redis implementation of simpleblog.CacheStore
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	opts   cache.Options
}

// New wraps an existing client
func New(client goredis.UniversalClient, config Config, opts ...cache.Option) *Store {
	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
		ttl:    config.Retention,
		opts:   cache.Apply(opts...),
	}
}

// Dial connects to the Redis server at url (redis://[:password@]host:port/db)
// and verifies it answers a PING.
func Dial(ctx context.Context, url string, config Config, opts ...cache.Option) (*Store, error) {
	redisOpts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, config, opts...), nil
}

var _ simpleblog.CacheStore = (*Store)(nil)

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
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
	_, ok := s.lookup(ctx, key)
	return ok
}

func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	entry, ok := s.lookup(ctx, key)
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
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		slog.Warn("Failed to write cache entry", "key", key, "err", err)
	}
}

func (s *Store) Invalidate(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		slog.Warn("Failed to remove cache entry", "key", key, "err", err)
	}
}

// InvalidateAll deletes every key under the store prefix, scanning in
// batches so large caches do not block the server
func (s *Store) InvalidateAll(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			slog.Warn("Failed to scan cache keys", "prefix", s.prefix, "err", err)
			return
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("Failed to remove cache entries", "count", len(keys), "err", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
