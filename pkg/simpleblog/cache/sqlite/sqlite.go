package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tendant/simple-blog/pkg/simpleblog"
	"github.com/tendant/simple-blog/pkg/simpleblog/cache"
	_ "modernc.org/sqlite"
)

// Store is a SQLite implementation of simpleblog.CacheStore, suited to a
// single instance that wants its cache to survive restarts in one file.
type Store struct {
	db   *sql.DB
	opts cache.Options
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string, opts ...cache.Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed while a writer holds the lock; the busy
	// timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    payload BLOB NOT NULL
)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Store{db: db, opts: cache.Apply(opts...)}, nil
}

var _ simpleblog.CacheStore = (*Store)(nil)

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cache_entries WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("Failed to read cache entry", "key", key, "err", err)
		}
		return cache.Entry{}, false
	}

	entry, err := cache.Decode(payload)
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
	payload, err := cache.Encode(cache.Entry{Content: []byte(content), Timestamp: s.opts.Now()})
	if err != nil {
		slog.Warn("Failed to encode cache entry", "key", key, "err", err)
		return
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO cache_entries (key, payload) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`, key, payload)
	if err != nil {
		slog.Warn("Failed to write cache entry", "key", key, "err", err)
	}
}

func (s *Store) Invalidate(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		slog.Warn("Failed to remove cache entry", "key", key, "err", err)
	}
}

func (s *Store) InvalidateAll(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		slog.Warn("Failed to clear cache entries", "err", err)
	}
}
