package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blog/pkg/simpleblog"
	cachefs "github.com/tendant/simple-blog/pkg/simpleblog/cache/fs"
	cachememory "github.com/tendant/simple-blog/pkg/simpleblog/cache/memory"
	cacheredis "github.com/tendant/simple-blog/pkg/simpleblog/cache/redis"
	cachesqlite "github.com/tendant/simple-blog/pkg/simpleblog/cache/sqlite"
	"github.com/tendant/simple-blog/pkg/simpleblog/repo/memory"
	repopg "github.com/tendant/simple-blog/pkg/simpleblog/repo/postgres"
	fsstorage "github.com/tendant/simple-blog/pkg/simpleblog/storage/fs"
	memorystorage "github.com/tendant/simple-blog/pkg/simpleblog/storage/memory"
	s3storage "github.com/tendant/simple-blog/pkg/simpleblog/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		AutoMigrate:  true,
		Storage: StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{"url_prefix": DefaultMediaPrefix},
		},
		Cache:        CacheConfig{Type: "memory"},
		FetchTimeout: simpleblog.DefaultFetchTimeout,
	}
}

// DefaultMediaPrefix is where the server publishes objects of stores that
// have no public endpoint of their own.
const DefaultMediaPrefix = "/media"

// ServerConfig represents server configuration for the simple-blog service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use; empty keeps the server default
	AutoMigrate  bool   // Create tables on startup

	// Blob storage for markdown bodies and images
	Storage StorageBackendConfig

	// Content cache
	Cache CacheConfig

	// AdminSecret guards mutating endpoints. Empty disables them.
	AdminSecret string

	FetchTimeout       time.Duration
	CORSAllowedOrigins []string
}

// StorageBackendConfig represents configuration for the blob store
type StorageBackendConfig struct {
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// CacheConfig selects the content cache backend
type CacheConfig struct {
	Type      string // "memory", "fs", "redis", "sqlite", "none"
	URL       string // redis connection URL
	Path      string // directory for fs, database file for sqlite
	Retention time.Duration
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if getString(c.Storage.Config, "base_dir", "") == "" {
			return errors.New("base_dir is required for fs storage")
		}
	case "s3":
		if getString(c.Storage.Config, "bucket", "") == "" {
			return errors.New("bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}

	switch c.Cache.Type {
	case "memory", "none":
	case "fs", "sqlite":
		if c.Cache.Path == "" {
			return fmt.Errorf("path is required for %s cache", c.Cache.Type)
		}
	case "redis":
		if c.Cache.URL == "" {
			return errors.New("url is required for redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production.
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ServesMedia reports whether the blob store relies on the server to
// publish its objects under the media prefix.
func (c *ServerConfig) ServesMedia() bool {
	return c.Storage.Type != "s3" && c.MediaPrefix() != ""
}

// MediaPrefix is the URL prefix memory and fs objects are published under.
func (c *ServerConfig) MediaPrefix() string {
	return strings.TrimRight(getString(c.Storage.Config, "url_prefix", ""), "/")
}

// Components are the collaborators assembled from a ServerConfig.
type Components struct {
	Service    simpleblog.Service
	Repository simpleblog.Repository
	BlobStore  simpleblog.BlobStore
	Cache      simpleblog.CacheStore
	Secret     simpleblog.SharedSecret

	closers []func()
}

// Close releases database pools and cache connections.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build creates the repository, blob store, cache and service described by
// the configuration.
func (c *ServerConfig) Build(ctx context.Context) (*Components, error) {
	comps := &Components{Secret: simpleblog.SharedSecret(c.AdminSecret)}

	repo, err := c.buildRepository(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	comps.Repository = repo

	store, err := c.buildStorageBackend()
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}
	comps.BlobStore = store

	contentCache, err := c.buildCache(ctx, comps)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to build cache %s: %w", c.Cache.Type, err)
	}
	comps.Cache = contentCache

	svc, err := simpleblog.New(
		simpleblog.WithRepository(repo),
		simpleblog.WithBlobStore(c.Storage.Type, store),
		simpleblog.WithCacheStore(contentCache),
		simpleblog.WithFetchTimeout(c.FetchTimeout),
	)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Service = svc

	return comps, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, comps *Components) (simpleblog.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := newPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		comps.closers = append(comps.closers, pool.Close)

		repo := repopg.NewWithPool(pool)
		if c.AutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
			slog.Info("Database schema ensured", "schema", c.DBSchema)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend() (simpleblog.BlobStore, error) {
	config := c.Storage.Config
	switch c.Storage.Type {
	case "memory":
		return memorystorage.NewWithURLPrefix(getString(config, "url_prefix", "")), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   getString(config, "base_dir", "./data/storage"),
			URLPrefix: getString(config, "url_prefix", ""),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config, "region", "us-east-1"),
			Bucket:                 getString(config, "bucket", ""),
			AccessKeyID:            getString(config, "access_key_id", ""),
			SecretAccessKey:        getString(config, "secret_access_key", ""),
			Endpoint:               getString(config, "endpoint", ""),
			UsePathStyle:           getBool(config, "use_path_style", false),
			PresignDuration:        getInt(config, "presign_duration", 3600),
			PublicBaseURL:          getString(config, "public_base_url", ""),
			EnableSSE:              getBool(config, "enable_sse", false),
			SSEAlgorithm:           getString(config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config, "create_bucket_if_not_exist", false),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

// buildCache creates the content cache. An unreachable Redis degrades to
// the in-process cache instead of failing startup.
func (c *ServerConfig) buildCache(ctx context.Context, comps *Components) (simpleblog.CacheStore, error) {
	switch c.Cache.Type {
	case "none":
		return simpleblog.NewNopCache(), nil
	case "memory":
		return cachememory.New(), nil
	case "fs":
		return cachefs.New(c.Cache.Path)
	case "sqlite":
		store, err := cachesqlite.Open(c.Cache.Path)
		if err != nil {
			return nil, err
		}
		comps.closers = append(comps.closers, func() { _ = store.Close() })
		return store, nil
	case "redis":
		store, err := cacheredis.Dial(ctx, c.Cache.URL, cacheredis.Config{
			Retention: c.Cache.Retention,
		})
		if err != nil {
			slog.Warn("Redis cache unavailable, falling back to memory cache", "err", err)
			return cachememory.New(), nil
		}
		comps.closers = append(comps.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
