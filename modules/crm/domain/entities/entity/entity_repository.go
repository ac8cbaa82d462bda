package entity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("entity not found")
	// ErrNoRowsAffected is returned when an update matched no row, either
	// because the id does not exist or the backend rejected the write.
	ErrNoRowsAffected = errors.New("no rows affected")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	Create(ctx context.Context, data *Entity) error
	Update(ctx context.Context, data *Entity) error

	// SetArchived sets or clears archived_at.
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error

	// ConvertToClient flips a prospect to a client, conditioned on the row not
	// already being a client. The false return covers both "not found" and
	// "already a client"; callers must not guess which.
	ConvertToClient(ctx context.Context, id uuid.UUID, clientNumber string) (bool, error)

	// AssignAgency attaches an orphan entity to an agency. The write is
	// conditioned on agency_id IS NULL so reassignment happens exactly once;
	// false means the precondition did not hold.
	AssignAgency(ctx context.Context, id uuid.UUID, agencyID uuid.UUID) (bool, error)
}
