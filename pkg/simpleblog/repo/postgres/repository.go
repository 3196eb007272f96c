package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blog/pkg/simpleblog"
)

//go:embed schema.sql
var schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleblog.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var (
	_ simpleblog.Repository = (*Repository)(nil)
	_ simpleblog.Transactor = (*Repository)(nil)
)

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx runs fn against a repository bound to one transaction, committing
// when fn succeeds and rolling back otherwise. A repository already built
// on a transaction nests through a savepoint.
func (r *Repository) InTx(ctx context.Context, fn func(simpleblog.Repository) error) error {
	db, ok := r.db.(beginner)
	if !ok {
		return fn(r)
	}
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

// Migrate creates the posts and post_versions tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return fmt.Errorf("%w: %s", simpleblog.ErrSlugTaken, pgErr.Detail)
			}
			if strings.Contains(pgErr.ConstraintName, "post_language") {
				return fmt.Errorf("%w: %s", simpleblog.ErrVariantExists, pgErr.Detail)
			}
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return simpleblog.ErrPostNotFound
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Post operations

const postColumns = `id, category, hashtag_ids, thumbnail, created_at, updated_at, published_at`

func scanPost(row pgx.Row) (*simpleblog.Post, error) {
	var post simpleblog.Post
	if err := row.Scan(
		&post.ID, &post.Category, &post.HashtagIDs, &post.Thumbnail,
		&post.CreatedAt, &post.UpdatedAt, &post.PublishedAt); err != nil {
		return nil, err
	}
	return &post, nil
}

func hashtags(post *simpleblog.Post) []string {
	if post.HashtagIDs == nil {
		return []string{}
	}
	return post.HashtagIDs
}

func (r *Repository) CreatePost(ctx context.Context, post *simpleblog.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		post.ID, post.Category, hashtags(post), post.Thumbnail,
		post.CreatedAt, post.UpdatedAt, post.PublishedAt)
	if err != nil {
		return r.handlePostgresError("create post", err)
	}
	return nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *simpleblog.Post) error {
	query := `
		UPDATE posts SET
			category = $2, hashtag_ids = $3, thumbnail = $4,
			updated_at = $5, published_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		post.ID, post.Category, hashtags(post), post.Thumbnail,
		post.UpdatedAt, post.PublishedAt)
	if err != nil {
		return r.handlePostgresError("update post", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleblog.ErrPostNotFound
	}
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrPostNotFound
		}
		return nil, r.handlePostgresError("get post", err)
	}
	return post, nil
}

const postFilterClause = `
		WHERE ($1 = '' OR lower(category) = lower($1))
		  AND ($2 = '' OR $2 = ANY(hashtag_ids))`

func (r *Repository) ListPosts(ctx context.Context, filter simpleblog.PostFilter) ([]*simpleblog.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts` + postFilterClause + `
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, filter.Category, filter.Hashtag)
	if err != nil {
		return nil, r.handlePostgresError("list posts", err)
	}
	defer rows.Close()

	var posts []*simpleblog.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate post rows", err)
	}
	return posts, nil
}

func (r *Repository) CountPosts(ctx context.Context, filter simpleblog.PostFilter) (int64, error) {
	query := `SELECT count(*) FROM posts` + postFilterClause

	var count int64
	if err := r.db.QueryRow(ctx, query, filter.Category, filter.Hashtag).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count posts", err)
	}
	return count, nil
}

// DeletePost relies on ON DELETE CASCADE to remove the versions.
func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleblog.ErrPostNotFound
	}
	return nil
}

// Version operations

const versionColumns = `id, post_id, language, slug, title, description, thumbnail, created_at, updated_at`

func scanVersion(row pgx.Row) (*simpleblog.Version, error) {
	var version simpleblog.Version
	var lang string
	if err := row.Scan(
		&version.ID, &version.PostID, &lang, &version.Slug,
		&version.Title, &version.Description, &version.Thumbnail,
		&version.CreatedAt, &version.UpdatedAt); err != nil {
		return nil, err
	}
	version.Language = simpleblog.Language(lang)
	return &version, nil
}

func (r *Repository) CreateVersion(ctx context.Context, version *simpleblog.Version) error {
	query := `
		INSERT INTO post_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		version.ID, version.PostID, string(version.Language), version.Slug,
		version.Title, version.Description, version.Thumbnail,
		version.CreatedAt, version.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create version", err)
	}
	return nil
}

func (r *Repository) UpdateVersion(ctx context.Context, version *simpleblog.Version) error {
	query := `
		UPDATE post_versions SET
			language = $3, slug = $4, title = $5, description = $6,
			thumbnail = $7, updated_at = $8
		WHERE id = $1 AND post_id = $2`

	tag, err := r.db.Exec(ctx, query,
		version.ID, version.PostID, string(version.Language), version.Slug,
		version.Title, version.Description, version.Thumbnail, version.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update version", err)
	}
	if tag.RowsAffected() == 0 {
		return simpleblog.ErrVersionNotFound
	}
	return nil
}

func (r *Repository) GetVersion(ctx context.Context, id uuid.UUID) (*simpleblog.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM post_versions WHERE id = $1`

	version, err := scanVersion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrVersionNotFound
		}
		return nil, r.handlePostgresError("get version", err)
	}
	return version, nil
}

func (r *Repository) GetVersionBySlug(ctx context.Context, slug string, lang simpleblog.Language) (*simpleblog.Version, error) {
	query := `
		SELECT ` + versionColumns + ` FROM post_versions
		WHERE slug = $1
		  AND ($2 = '' OR COALESCE(NULLIF(language, ''), $3) = $2)
		ORDER BY created_at, id
		LIMIT 1`

	version, err := scanVersion(r.db.QueryRow(ctx, query, slug, string(lang), string(simpleblog.PrimaryLanguage)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleblog.ErrVersionNotFound
		}
		return nil, r.handlePostgresError("get version by slug", err)
	}
	return version, nil
}

func (r *Repository) ListVersionsByPost(ctx context.Context, postID uuid.UUID) ([]*simpleblog.Version, error) {
	query := `
		SELECT ` + versionColumns + ` FROM post_versions
		WHERE post_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, postID)
	if err != nil {
		return nil, r.handlePostgresError("list versions", err)
	}
	defer rows.Close()

	versions := make([]*simpleblog.Version, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan version", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate version rows", err)
	}
	return versions, nil
}
