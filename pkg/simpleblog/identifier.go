package simpleblog

import (
	"github.com/google/uuid"
)

// IdentifierKind names the identity scheme an identifier was resolved under.
type IdentifierKind int

const (
	IdentifierSlug IdentifierKind = iota
	IdentifierPostID
	IdentifierVersionID
)

func (k IdentifierKind) String() string {
	switch k {
	case IdentifierPostID:
		return "post_id"
	case IdentifierVersionID:
		return "version_id"
	default:
		return "slug"
	}
}

// Identifier is a tagged candidate interpretation of a raw identifier.
type Identifier struct {
	Kind IdentifierKind
	Raw  string
	ID   uuid.UUID
}

// Candidates returns the interpretations of raw in resolution order:
// post identity, then version identity, then slug. Strings that are not
// UUIDs can only be slugs.
func Candidates(raw string) []Identifier {
	id, err := uuid.Parse(raw)
	if err != nil {
		return []Identifier{{Kind: IdentifierSlug, Raw: raw}}
	}
	return []Identifier{
		{Kind: IdentifierPostID, Raw: raw, ID: id},
		{Kind: IdentifierVersionID, Raw: raw, ID: id},
		{Kind: IdentifierSlug, Raw: raw},
	}
}
