package enums

import "strings"

// RelationshipKind classifies a DeclinedProfile marker: which kind of
// record the decline (or block) applied to.
type RelationshipKind string

const (
	RelationshipInterest RelationshipKind = "interest"
	RelationshipContact  RelationshipKind = "contact"
	RelationshipBlock    RelationshipKind = "block"
)

func ParseRelationshipKind(value string) (RelationshipKind, bool) {
	kind := RelationshipKind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case RelationshipInterest, RelationshipContact, RelationshipBlock:
		return kind, true
	default:
		return "", false
	}
}
