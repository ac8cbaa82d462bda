package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	contactScope = "data_entity_contacts"

	ContactActionSave   = "save"
	ContactActionDelete = "delete"
)

type ContactRequest struct {
	Action    string  `json:"action"`
	RequestID string  `json:"request_id"`
	ID        string  `json:"id"`
	EntityID  string  `json:"entity_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Role      *string `json:"role"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

type ContactResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	ContactID string `json:"contact_id,omitempty"`
}

type ContactService struct {
	contacts  contact.Repository
	guard     *AccessGuard
	limiter   ratelimit.Checker
	publisher eventbus.EventBus
}

func NewContactService(
	contacts contact.Repository,
	guard *AccessGuard,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *ContactService {
	return &ContactService{
		contacts:  contacts,
		guard:     guard,
		limiter:   limiter,
		publisher: publisher,
	}
}

func (s *ContactService) HandleAction(ctx context.Context, req ContactRequest) (*ContactResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, contactScope+":"+req.Action, caller.UserID.String()); err != nil {
		return nil, err
	}

	switch req.Action {
	case ContactActionSave:
		return s.save(ctx, caller, req)
	case ContactActionDelete:
		return s.delete(ctx, caller, req)
	default:
		return nil, serrors.ActionRequired()
	}
}

func (s *ContactService) save(ctx context.Context, caller composables.Caller, req ContactRequest) (*ContactResult, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" && lastName == "" {
		return nil, serrors.ValidationError("contact name is required")
	}

	opts := []contact.Option{
		contact.WithRole(normalizeOptional(req.Role)),
		contact.WithEmail(normalizeOptional(req.Email)),
		contact.WithPhone(normalizeOptional(req.Phone)),
	}

	if strings.TrimSpace(req.ID) == "" {
		entityID, err := uuid.Parse(strings.TrimSpace(req.EntityID))
		if err != nil {
			return nil, serrors.InvalidPayload("invalid entity id")
		}
		// Authorize against the future parent's agency.
		agencyID, err := s.guard.ResolveEntityAgency(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if err := s.guard.EnsureCurrentAgencyAccess(caller, agencyID); err != nil {
			return nil, err
		}

		data := contact.New(entityID, firstName, lastName, opts...)
		if err := s.contacts.Create(ctx, data); err != nil {
			return nil, serrors.DBWriteFailed("failed to create contact")
		}
		s.publisher.Publish(ContactSavedEvent{ContactID: data.ID(), EntityID: entityID, Created: true})
		return &ContactResult{RequestID: req.RequestID, OK: true, ContactID: data.ID().String()}, nil
	}

	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid contact id")
	}
	existing, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			return nil, serrors.NotFound("contact not found")
		}
		return nil, serrors.DBReadFailed(err)
	}
	// The parent entity is immutable on update; authorization uses the
	// contact's current scope, not the payload's entity_id.
	agencyID, err := s.guard.ResolveEntityAgency(ctx, existing.EntityID())
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureCurrentAgencyAccess(caller, agencyID); err != nil {
		return nil, err
	}

	data := contact.New(existing.EntityID(), firstName, lastName, append(opts, contact.WithID(id))...)
	if err := s.contacts.Update(ctx, data); err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			return nil, serrors.NotFound("contact not found")
		}
		return nil, serrors.DBWriteFailed("failed to update contact")
	}
	s.publisher.Publish(ContactSavedEvent{ContactID: id, EntityID: existing.EntityID(), Created: false})
	return &ContactResult{RequestID: req.RequestID, OK: true, ContactID: id.String()}, nil
}

func (s *ContactService) delete(ctx context.Context, caller composables.Caller, req ContactRequest) (*ContactResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid contact id")
	}

	agencyID, err := s.guard.ResolveContactAgency(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureCurrentAgencyAccess(caller, agencyID); err != nil {
		return nil, err
	}

	if err := s.contacts.Delete(ctx, id); err != nil {
		return nil, serrors.DBWriteFailed("failed to delete contact")
	}
	s.publisher.Publish(ContactDeletedEvent{ContactID: id})
	return &ContactResult{RequestID: req.RequestID, OK: true, ContactID: id.String()}, nil
}
