package simpleblog

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidSlug indicates a missing or malformed slug
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrInvalidIdentifier indicates a missing post, version or slug identifier
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidLanguage indicates a language tag outside the supported set
	ErrInvalidLanguage = errors.New("invalid language")

	// ErrInvalidRequest indicates a request that failed validation
	ErrInvalidRequest = errors.New("invalid request")

	// ErrPostNotFound indicates no post matched
	ErrPostNotFound = errors.New("post not found")

	// ErrVersionNotFound indicates no version matched
	ErrVersionNotFound = errors.New("version not found")

	// ErrContentNotFound indicates the version exists but its body is missing from blob storage
	ErrContentNotFound = errors.New("content not found")

	// ErrObjectNotFound is returned by blob stores for absent keys
	ErrObjectNotFound = errors.New("object not found")

	// ErrSlugTaken indicates the slug is already used by another version in the same language
	ErrSlugTaken = errors.New("slug already in use")

	// ErrVariantExists indicates the post already has a version in that language
	ErrVariantExists = errors.New("post already has a version in this language")

	// ErrUnauthorized indicates a missing or wrong shared secret
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSecretNotConfigured indicates the server has no shared secret provisioned
	ErrSecretNotConfigured = errors.New("shared secret not configured")
)

// IsNotFound reports whether err means the requested record or body does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrObjectNotFound)
}

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// MetadataError represents a failure of the metadata store
type MetadataError struct {
	Op  string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata operation %s failed: %v", e.Op, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies errors into externally observable outcomes.
type ErrorKind int

const (
	KindUpstream ErrorKind = iota
	KindMalformed
	KindNotFound
	KindConflict
	KindAuth
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "unauthorized"
	case KindConfig:
		return "server_misconfigured"
	default:
		return "upstream_failure"
	}
}

// KindOf classifies err. Anything unrecognized is an upstream failure.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrSecretNotConfigured):
		return KindConfig
	case errors.Is(err, ErrUnauthorized):
		return KindAuth
	case errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrInvalidLanguage),
		errors.Is(err, ErrInvalidRequest):
		return KindMalformed
	case IsNotFound(err):
		return KindNotFound
	case errors.Is(err, ErrSlugTaken), errors.Is(err, ErrVariantExists):
		return KindConflict
	default:
		return KindUpstream
	}
}
