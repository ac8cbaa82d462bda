package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/serrors"
)

// AccessGuard decides whether a caller may act on an agency-scoped resource.
// Every mutation handler authorizes before touching the target row, against
// the row's current agency — never against an agency value supplied in the
// request body, which a caller could forge to claim a foreign resource.
type AccessGuard struct {
	entities entity.Repository
	contacts contact.Repository
}

func NewAccessGuard(entities entity.Repository, contacts contact.Repository) *AccessGuard {
	return &AccessGuard{
		entities: entities,
		contacts: contacts,
	}
}

// EnsureAgencyAccess returns the parsed agency id when the caller is a member
// of the agency or a super-admin. A blank id fails before any membership
// check.
func (g *AccessGuard) EnsureAgencyAccess(caller composables.Caller, agencyID string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(agencyID)
	if trimmed == "" {
		return uuid.Nil, serrors.AgencyIDInvalid()
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.Nil, serrors.AgencyIDInvalid()
	}
	if caller.IsSuperAdmin || caller.HasAgency(id) {
		return id, nil
	}
	return uuid.Nil, serrors.Forbidden("caller has no access to this agency")
}

// EnsureOptionalAgencyAccess is EnsureAgencyAccess for resources that may
// legitimately be orphaned: a blank id is permitted, but only for
// super-admins, and resolves to nil.
func (g *AccessGuard) EnsureOptionalAgencyAccess(caller composables.Caller, agencyID string) (*uuid.UUID, error) {
	if strings.TrimSpace(agencyID) == "" {
		if caller.IsSuperAdmin {
			return nil, nil
		}
		return nil, serrors.Forbidden("only super-admins may act on orphaned resources")
	}
	id, err := g.EnsureAgencyAccess(caller, agencyID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// EnsureCurrentAgencyAccess authorizes against a row's resolved agency. A nil
// agency means the row is orphaned and reachable by super-admins only.
func (g *AccessGuard) EnsureCurrentAgencyAccess(caller composables.Caller, agencyID *uuid.UUID) error {
	if caller.IsSuperAdmin {
		return nil
	}
	if agencyID == nil {
		return serrors.Forbidden("only super-admins may act on orphaned resources")
	}
	if !caller.HasAgency(*agencyID) {
		return serrors.Forbidden("caller has no access to this agency")
	}
	return nil
}

// EnsureReassignSuperAdmin gates reassignment, a privileged cross-tenant
// operation never exposed to ordinary agency members.
func (g *AccessGuard) EnsureReassignSuperAdmin(caller composables.Caller) error {
	if !caller.IsSuperAdmin {
		return serrors.Forbidden("reassignment requires super-admin access")
	}
	return nil
}

// ResolveEntityAgency fetches the entity and returns its current agency.
func (g *AccessGuard) ResolveEntityAgency(ctx context.Context, entityID uuid.UUID) (*uuid.UUID, error) {
	e, err := g.entities.GetByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, serrors.NotFound("entity not found")
		}
		return nil, serrors.DBReadFailed(err)
	}
	return e.AgencyID(), nil
}

// ResolveContactAgency resolves contact → entity → agency.
func (g *AccessGuard) ResolveContactAgency(ctx context.Context, contactID uuid.UUID) (*uuid.UUID, error) {
	c, err := g.contacts.GetByID(ctx, contactID)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			return nil, serrors.NotFound("contact not found")
		}
		return nil, serrors.DBReadFailed(err)
	}
	return g.ResolveEntityAgency(ctx, c.EntityID())
}
