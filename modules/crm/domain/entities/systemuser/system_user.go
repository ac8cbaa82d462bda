package systemuser

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("system user mapping not found")

// EmailDomain hosts the synthetic addresses of provisioned system users. The
// .invalid TLD guarantees they can never receive mail or collide with a real
// account.
const EmailDomain = "system.agenceo.invalid"

// EmailForAgency derives the deterministic synthetic address of an agency's
// system user. A nil agency id addresses the single global orphan system user.
func EmailForAgency(agencyID *uuid.UUID) string {
	if agencyID == nil {
		return fmt.Sprintf("system+orphan@%s", EmailDomain)
	}
	return fmt.Sprintf("system+%s@%s", agencyID, EmailDomain)
}

// Repository persists the agency→system-user mapping. One row per agency plus
// one global row (nil agency) for orphan interactions.
type Repository interface {
	// Get returns the system user id mapped to the agency.
	Get(ctx context.Context, agencyID *uuid.UUID) (uuid.UUID, error)

	// Upsert persists the mapping and returns the winning user id. Concurrent
	// provisioning attempts converge: on conflict the existing row wins and is
	// returned instead of the caller's candidate.
	Upsert(ctx context.Context, agencyID *uuid.UUID, userID uuid.UUID) (uuid.UUID, error)
}
