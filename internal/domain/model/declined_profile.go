package model

import (
	"time"

	"github.com/milanapp/engine/internal/domain/enums"
)

// DeclinedProfile is a relationship-level marker written whenever one
// profile declines, revokes, or blocks another. Reconsideration operates on
// these markers rather than on a specific interest or contact-request row,
// because the affected record is located again at reconsideration time.
type DeclinedProfile struct {
	ID                int64                  `json:"id"`
	DeclinerProfileID int64                  `json:"decliner_profile_id"`
	DeclinedProfileID int64                  `json:"declined_profile_id"`
	Kind              enums.RelationshipKind `json:"kind"`
	DeclinedAt        time.Time              `json:"declined_at"`
	IsReconsidered    bool                   `json:"is_reconsidered"`
}
