package simpleblog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Language is the language tag of a version.
type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageEnglish    Language = "en"

	// PrimaryLanguage is assumed for versions stored without a language tag.
	PrimaryLanguage = LanguageVietnamese
)

// Languages lists the supported language tags, primary first.
var Languages = []Language{LanguageVietnamese, LanguageEnglish}

// ParseLanguage normalizes s and reports whether it is a supported tag.
func ParseLanguage(s string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range Languages {
		if l == lang {
			return l, true
		}
	}
	return "", false
}

// OrPrimary returns l, or PrimaryLanguage when l is empty.
func (l Language) OrPrimary() Language {
	if l == "" {
		return PrimaryLanguage
	}
	return l
}

func (l Language) String() string {
	return string(l)
}

// Post groups the language variants of one piece of content.
type Post struct {
	ID          uuid.UUID  `json:"id"`
	Category    string     `json:"category"`
	HashtagIDs  []string   `json:"hashtag_ids"`
	Thumbnail   string     `json:"thumbnail"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// HasHashtag reports whether the post is tagged with id.
func (p *Post) HasHashtag(id string) bool {
	for _, h := range p.HashtagIDs {
		if h == id {
			return true
		}
	}
	return false
}

// Version is one language rendition of a post.
type Version struct {
	ID          uuid.UUID `json:"id"`
	PostID      uuid.UUID `json:"post_id"`
	Language    Language  `json:"language"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EffectiveLanguage returns the version language, defaulting an absent tag
// to PrimaryLanguage.
func (v *Version) EffectiveLanguage() Language {
	return v.Language.OrPrimary()
}

// VariantFlags records which languages a post is available in.
type VariantFlags struct {
	HasVi bool `json:"has_vi"`
	HasEn bool `json:"has_en"`
}

// Variants computes the language flags of a set of versions.
func Variants(versions []*Version) VariantFlags {
	var flags VariantFlags
	for _, v := range versions {
		switch v.EffectiveLanguage() {
		case LanguageVietnamese:
			flags.HasVi = true
		case LanguageEnglish:
			flags.HasEn = true
		}
	}
	return flags
}

// PostFilter narrows the full post listing.
type PostFilter struct {
	Category string
	Hashtag  string
}

// Match reports whether p passes the filter.
func (f PostFilter) Match(p *Post) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Hashtag != "" && !p.HasHashtag(f.Hashtag) {
		return false
	}
	return true
}
