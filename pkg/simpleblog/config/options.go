package config

import (
	"errors"
	"time"
)

// WithPort sets the HTTP listen port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithDatabase selects the metadata store
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema selects the Postgres schema
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithMemoryStorage keeps blobs in process memory, published under urlPrefix
func WithMemoryStorage(urlPrefix string) Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageBackendConfig{
			Type:   "memory",
			Config: map[string]interface{}{"url_prefix": urlPrefix},
		}
		return nil
	}
}

// WithFilesystemStorage stores blobs below baseDir, published under urlPrefix
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return errors.New("base directory cannot be empty")
		}
		c.Storage = StorageBackendConfig{
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir":   baseDir,
				"url_prefix": urlPrefix,
			},
		}
		return nil
	}
}

// WithS3Storage stores blobs in an S3 bucket
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return errors.New("bucket cannot be empty")
		}
		c.Storage = StorageBackendConfig{
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		}
		return nil
	}
}

// WithS3Endpoint points the S3 backend at an S3-compatible service
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return errors.New("s3 storage must be configured before its endpoint")
		}
		c.Storage.Config["endpoint"] = endpoint
		c.Storage.Config["use_path_style"] = usePathStyle
		return nil
	}
}

// WithCache selects the content cache backend
func WithCache(cacheURL string) Option {
	return func(c *ServerConfig) error {
		return applyCacheURL(cacheURL, c.Cache.Retention, c)
	}
}

// WithAdminSecret sets the shared secret guarding mutating endpoints
func WithAdminSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.AdminSecret = secret
		return nil
	}
}

// WithFetchTimeout bounds each blob download
func WithFetchTimeout(d time.Duration) Option {
	return func(c *ServerConfig) error {
		c.FetchTimeout = d
		return nil
	}
}

// WithCORSOrigins restricts which browser origins may call the API
func WithCORSOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.CORSAllowedOrigins = trimAll(origins)
		return nil
	}
}
