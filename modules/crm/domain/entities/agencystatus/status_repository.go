package agencystatus

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*Status, error)

	// Upsert inserts the status or updates the existing row with the same id.
	Upsert(ctx context.Context, data *Status) error

	// DeleteByIDs removes the given statuses of the agency.
	DeleteByIDs(ctx context.Context, agencyID uuid.UUID, ids []uuid.UUID) error
}
