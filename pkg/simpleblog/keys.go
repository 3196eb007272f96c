package simpleblog

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentKey is the blob key of a version's markdown body.
func ContentKey(versionID uuid.UUID) string {
	return "posts/" + versionID.String() + ".md"
}

// ImageKey builds a collision-free blob key for an uploaded image,
// keeping the original file extension.
func ImageKey(filename string, id uuid.UUID, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("images", now.UTC().Format("2006/01"), id.String()+ext)
}

// CacheKey is the cache key for a content request. Requests without a
// supported language hint use the bare slug; hinted requests qualify the
// slug so same-slug variants in different languages do not share an entry.
func CacheKey(slug string, languageHint string) string {
	lang, ok := ParseLanguage(languageHint)
	if !ok {
		return slug
	}
	return string(lang) + ":" + slug
}

// CacheKeys returns every cache key a request for the version may have used.
func CacheKeys(v *Version) []string {
	return []string{v.Slug, CacheKey(v.Slug, string(v.EffectiveLanguage()))}
}
