package simpleblog

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Resolver maps slugs and identities onto version records.
type Resolver struct {
	repository Repository
}

// NewResolver creates a resolver over repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repository: repo}
}

// Resolution is the outcome of ResolveByIdentifier.
type Resolution struct {
	Kind    IdentifierKind
	Version *Version
}

// ResolveBySlug returns the version carrying slug. A languageHint that is a
// supported language scopes the lookup to that language; an empty or
// unsupported hint returns the first match in any language.
func (r *Resolver) ResolveBySlug(ctx context.Context, slug string, languageHint string) (*Version, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrInvalidSlug
	}

	lang, _ := ParseLanguage(languageHint)
	version, err := r.repository.GetVersionBySlug(ctx, slug, lang)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrVersionNotFound
		}
		return nil, &MetadataError{Op: "get version by slug", Err: err}
	}
	return version, nil
}

// ResolveByIdentifier accepts a post identity, a version identity or a slug
// and tries them in that order, returning the first match. A post identity
// resolves to the primary-language variant, or the first variant when the
// post has no primary-language version.
func (r *Resolver) ResolveByIdentifier(ctx context.Context, identifier string) (*Resolution, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}

	for _, candidate := range Candidates(identifier) {
		version, err := r.lookup(ctx, candidate)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		return &Resolution{Kind: candidate.Kind, Version: version}, nil
	}

	return nil, ErrVersionNotFound
}

func (r *Resolver) lookup(ctx context.Context, candidate Identifier) (*Version, error) {
	switch candidate.Kind {
	case IdentifierPostID:
		variants, err := r.ListVariants(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		return variants[0], nil
	case IdentifierVersionID:
		version, err := r.repository.GetVersion(ctx, candidate.ID)
		if err != nil {
			if IsNotFound(err) {
				return nil, ErrVersionNotFound
			}
			return nil, &MetadataError{Op: "get version", Err: err}
		}
		return version, nil
	default:
		return r.ResolveBySlug(ctx, candidate.Raw, "")
	}
}

// ListVariants returns every version of the post, primary language first
// and otherwise in store order. A post without versions is not found.
func (r *Resolver) ListVariants(ctx context.Context, postID uuid.UUID) ([]*Version, error) {
	versions, err := r.repository.ListVersionsByPost(ctx, postID)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, &MetadataError{Op: "list versions", Err: err}
	}
	if len(versions) == 0 {
		return nil, ErrPostNotFound
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return languageRank(versions[i].EffectiveLanguage()) < languageRank(versions[j].EffectiveLanguage())
	})
	return versions, nil
}

// PickVariant returns the variant in lang, falling back to the first one.
func PickVariant(variants []*Version, lang Language) *Version {
	if len(variants) == 0 {
		return nil
	}
	for _, v := range variants {
		if v.EffectiveLanguage() == lang {
			return v
		}
	}
	return variants[0]
}

func languageRank(lang Language) int {
	for i, l := range Languages {
		if l == lang {
			return i
		}
	}
	return len(Languages)
}
