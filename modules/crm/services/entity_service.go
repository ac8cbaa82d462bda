package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	entityScope = "data_entities"

	EntityActionSave            = "save"
	EntityActionArchive         = "archive"
	EntityActionUnarchive       = "unarchive"
	EntityActionConvertToClient = "convert_to_client"
	EntityActionReassign        = "reassign"
)

// EntityRequest is the decoded {action, ...} payload of the entities action
// endpoint.
type EntityRequest struct {
	Action       string  `json:"action"`
	RequestID    string  `json:"request_id"`
	ID           string  `json:"id"`
	AgencyID     string  `json:"agency_id"`
	EntityType   string  `json:"entity_type"`
	Name         string  `json:"name"`
	Address      *string `json:"address"`
	Siret        *string `json:"siret"`
	ClientNumber *string `json:"client_number"`
	AccountType  *string `json:"account_type"`
}

type EntityResult struct {
	RequestID              string `json:"request_id"`
	OK                     bool   `json:"ok"`
	EntityID               string `json:"entity_id,omitempty"`
	PropagatedInteractions int64  `json:"propagated_interactions"`
}

type EntityService struct {
	entities     entity.Repository
	agencies     agency.Repository
	interactions interaction.Repository
	guard        *AccessGuard
	limiter      ratelimit.Checker
	publisher    eventbus.EventBus
}

func NewEntityService(
	entities entity.Repository,
	agencies agency.Repository,
	interactions interaction.Repository,
	guard *AccessGuard,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *EntityService {
	return &EntityService{
		entities:     entities,
		agencies:     agencies,
		interactions: interactions,
		guard:        guard,
		limiter:      limiter,
		publisher:    publisher,
	}
}

func (s *EntityService) HandleAction(ctx context.Context, req EntityRequest) (*EntityResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, entityScope+":"+req.Action, caller.UserID.String()); err != nil {
		return nil, err
	}

	switch req.Action {
	case EntityActionSave:
		return s.save(ctx, caller, req)
	case EntityActionArchive:
		return s.setArchived(ctx, caller, req, true)
	case EntityActionUnarchive:
		return s.setArchived(ctx, caller, req, false)
	case EntityActionConvertToClient:
		return s.convertToClient(ctx, caller, req)
	case EntityActionReassign:
		return s.reassign(ctx, caller, req)
	default:
		return nil, serrors.ActionRequired()
	}
}

func (s *EntityService) save(ctx context.Context, caller composables.Caller, req EntityRequest) (*EntityResult, error) {
	agencyID, err := s.guard.EnsureAgencyAccess(caller, req.AgencyID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, serrors.ValidationError("name is required")
	}
	entityType := entity.Type(strings.TrimSpace(req.EntityType))
	if !entityType.IsValid() {
		return nil, serrors.ValidationError("entity_type must be Client or Prospect")
	}

	opts := []entity.Option{
		entity.WithAgencyID(&agencyID),
		entity.WithAddress(normalizeOptional(req.Address)),
		entity.WithSiret(normalizeOptional(req.Siret)),
	}
	// The client-only subset is dropped entirely for prospects.
	if entityType == entity.TypeClient {
		if req.ClientNumber != nil {
			stripped := stripWhitespace(*req.ClientNumber)
			opts = append(opts, entity.WithClientNumber(normalizeOptional(&stripped)))
		}
		opts = append(opts, entity.WithAccountType(normalizeOptional(req.AccountType)))
	}

	created := strings.TrimSpace(req.ID) == ""
	var data *entity.Entity
	if created {
		data = entity.New(name, entityType, opts...)
		if err := s.entities.Create(ctx, data); err != nil {
			return nil, serrors.DBWriteFailed("failed to create entity")
		}
	} else {
		id, err := uuid.Parse(strings.TrimSpace(req.ID))
		if err != nil {
			return nil, serrors.InvalidPayload("invalid entity id")
		}
		data = entity.New(name, entityType, append(opts, entity.WithID(id))...)
		if err := s.entities.Update(ctx, data); err != nil {
			if errors.Is(err, entity.ErrNoRowsAffected) {
				return nil, serrors.DBWriteFailed("entity update affected no rows")
			}
			return nil, serrors.DBWriteFailed("failed to update entity")
		}
	}

	s.publisher.Publish(EntitySavedEvent{EntityID: data.ID(), AgencyID: agencyID, Created: created})
	return &EntityResult{RequestID: req.RequestID, OK: true, EntityID: data.ID().String()}, nil
}

func (s *EntityService) setArchived(ctx context.Context, caller composables.Caller, req EntityRequest, archived bool) (*EntityResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid entity id")
	}

	// Authorization uses the row's current agency; an orphan entity stays
	// reachable by super-admins through the optional-access rule.
	agencyID, err := s.guard.ResolveEntityAgency(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureCurrentAgencyAccess(caller, agencyID); err != nil {
		return nil, err
	}

	if err := s.entities.SetArchived(ctx, id, archived); err != nil {
		if errors.Is(err, entity.ErrNoRowsAffected) {
			return nil, serrors.DBWriteFailed("entity archive affected no rows")
		}
		return nil, serrors.DBWriteFailed("failed to archive entity")
	}

	s.publisher.Publish(EntityArchivedEvent{EntityID: id, Archived: archived})
	return &EntityResult{RequestID: req.RequestID, OK: true, EntityID: id.String()}, nil
}

func (s *EntityService) convertToClient(ctx context.Context, caller composables.Caller, req EntityRequest) (*EntityResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid entity id")
	}

	agencyID, err := s.guard.ResolveEntityAgency(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureCurrentAgencyAccess(caller, agencyID); err != nil {
		return nil, err
	}

	clientNumber := ""
	if req.ClientNumber != nil {
		clientNumber = stripWhitespace(*req.ClientNumber)
	}
	if clientNumber == "" {
		return nil, serrors.ValidationError("client_number is required")
	}

	converted, err := s.entities.ConvertToClient(ctx, id, clientNumber)
	if err != nil {
		return nil, serrors.DBWriteFailed("failed to convert entity")
	}
	if !converted {
		// Zero rows means "not found" or "already a client"; the conditioned
		// update cannot tell them apart and no follow-up lookup is made.
		return nil, serrors.DBWriteFailed("entity conversion affected no rows")
	}

	s.publisher.Publish(EntityConvertedEvent{EntityID: id})
	return &EntityResult{RequestID: req.RequestID, OK: true, EntityID: id.String()}, nil
}

func (s *EntityService) reassign(ctx context.Context, caller composables.Caller, req EntityRequest) (*EntityResult, error) {
	if err := s.guard.EnsureReassignSuperAdmin(caller); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid entity id")
	}
	agencyIDStr := strings.TrimSpace(req.AgencyID)
	if agencyIDStr == "" {
		return nil, serrors.AgencyIDInvalid()
	}
	agencyID, err := uuid.Parse(agencyIDStr)
	if err != nil {
		return nil, serrors.AgencyIDInvalid()
	}

	target, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		if errors.Is(err, agency.ErrNotFound) {
			return nil, serrors.NotFound("agency not found")
		}
		return nil, serrors.DBReadFailed(err)
	}
	if target.IsArchived() {
		return nil, serrors.ValidationError("agency is archived")
	}

	assigned, err := s.entities.AssignAgency(ctx, id, agencyID)
	if err != nil {
		return nil, serrors.DBWriteFailed("failed to reassign entity")
	}
	if !assigned {
		// The conditioned update guarantees exactly-once reassignment; a
		// follow-up lookup disambiguates the user-visible failure.
		if _, err := s.entities.GetByID(ctx, id); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return nil, serrors.NotFound("entity not found")
			}
			return nil, serrors.DBReadFailed(err)
		}
		return nil, serrors.ValidationError("only orphan entities may be reassigned")
	}

	// Best-effort sequential: the entity write committed above, so a failure
	// here leaves some interactions orphaned but never a half-assigned entity.
	propagated, err := s.interactions.PropagateAgency(ctx, id, agencyID)
	if err != nil {
		return nil, serrors.DBWriteFailed("failed to propagate agency to interactions")
	}

	s.publisher.Publish(EntityReassignedEvent{EntityID: id, AgencyID: agencyID, PropagatedInteractions: propagated})
	return &EntityResult{
		RequestID:              req.RequestID,
		OK:                     true,
		EntityID:               id.String(),
		PropagatedInteractions: propagated,
	}, nil
}
