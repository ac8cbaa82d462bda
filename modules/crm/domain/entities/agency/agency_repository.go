package agency

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("agency not found")
	ErrNameTaken = errors.New("agency name already taken")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Agency, error)
	Create(ctx context.Context, data *Agency) error

	// AddMember grants a user access to the agency. Idempotent: inserting an
	// existing (agency_id, user_id) pair is a no-op.
	AddMember(ctx context.Context, agencyID, userID uuid.UUID) error

	// AgencyIDsByUser returns the membership set used to build a caller's
	// authorization context.
	AgencyIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
