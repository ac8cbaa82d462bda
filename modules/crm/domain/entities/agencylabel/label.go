package agencylabel

import (
	"context"

	"github.com/google/uuid"
)

// Kind discriminates the per-agency label lists sharing one table.
type Kind string

const (
	KindService         Kind = "services"
	KindEntityType      Kind = "entity_types"
	KindFamily          Kind = "families"
	KindInteractionType Kind = "interaction_types"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindService, KindEntityType, KindFamily, KindInteractionType:
		return true
	}
	return false
}

// Label is one entry of an agency's configurable label list.
type Label struct {
	ID        uuid.UUID
	AgencyID  uuid.UUID
	Kind      Kind
	Label     string
	SortOrder int
}

type Repository interface {
	ListByAgency(ctx context.Context, agencyID uuid.UUID, kind Kind) ([]Label, error)

	// Upsert inserts the label or refreshes the sort order of an existing one,
	// keyed by (agency_id, kind, lower(label)).
	Upsert(ctx context.Context, agencyID uuid.UUID, kind Kind, label string, sortOrder int) error

	// DeleteByLabels removes the given labels of the agency and kind.
	DeleteByLabels(ctx context.Context, agencyID uuid.UUID, kind Kind, labels []string) error
}
