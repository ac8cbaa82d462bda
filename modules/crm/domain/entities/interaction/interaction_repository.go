package interaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("interaction not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Interaction, error)

	// Upsert inserts the interaction or, when the id already exists, replaces
	// the full row except the id. This is the single-writer save path; it
	// carries no version check.
	Upsert(ctx context.Context, data *Interaction) error

	// UpdateWithVersion writes the new timeline and the patched scalar fields,
	// conditioned on updated_at matching the version the caller observed. The
	// store enforces the check atomically in the same statement as the write.
	// ok=false means the row changed underneath the caller (or disappeared);
	// on success the returned time is the row's new version token.
	UpdateWithVersion(
		ctx context.Context,
		id uuid.UUID,
		expectedUpdatedAt time.Time,
		timeline []Event,
		patch Patch,
	) (time.Time, bool, error)

	// PropagateAgency assigns the agency to every interaction of the entity
	// that is itself still orphaned, returning the number of rows touched.
	PropagateAgency(ctx context.Context, entityID, agencyID uuid.UUID) (int64, error)

	// CreatorAgencyIDs returns the distinct agency ids under which the user
	// owns interactions, plus whether any owned interaction is agency-less.
	CreatorAgencyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, bool, error)

	// ReassignCreator moves ownership of the user's interactions to another
	// user. A nil agencyID targets the agency-less subset.
	ReassignCreator(ctx context.Context, fromUserID, toUserID uuid.UUID, agencyID *uuid.UUID) (int64, error)
}
