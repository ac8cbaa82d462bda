package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const agencyScope = "admin-agencies"

const (
	AgencyActionCreate    = "create"
	AgencyActionAddMember = "add_member"
)

type AgencyRequest struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	AgencyID  string `json:"agency_id"`
	Name      string `json:"name"`
	UserID    string `json:"user_id"`
}

type AgencyResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	AgencyID  string `json:"agency_id,omitempty"`
}

// AgencyService manages the tenant boundary itself. Both actions are
// privileged: agencies are created and staffed by super-admins only.
type AgencyService struct {
	agencies  agency.Repository
	limiter   ratelimit.Checker
	publisher eventbus.EventBus
}

func NewAgencyService(
	agencies agency.Repository,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *AgencyService {
	return &AgencyService{
		agencies:  agencies,
		limiter:   limiter,
		publisher: publisher,
	}
}

func (s *AgencyService) HandleAction(ctx context.Context, req AgencyRequest) (*AgencyResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, agencyScope, caller.UserID.String()); err != nil {
		return nil, err
	}
	if !caller.IsSuperAdmin {
		return nil, serrors.Forbidden("only super-admins may manage agencies")
	}

	switch req.Action {
	case AgencyActionCreate:
		return s.create(ctx, req)
	case AgencyActionAddMember:
		return s.addMember(ctx, req)
	default:
		return nil, serrors.ActionRequired()
	}
}

func (s *AgencyService) create(ctx context.Context, req AgencyRequest) (*AgencyResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, serrors.ValidationError("agency name is required")
	}

	created := agency.New(name)
	if err := s.agencies.Create(ctx, created); err != nil {
		if errors.Is(err, agency.ErrNameTaken) {
			return nil, serrors.AgencyNameExists()
		}
		return nil, serrors.DBWriteFailed("failed to create agency")
	}

	s.publisher.Publish(AgencyCreatedEvent{AgencyID: created.ID()})
	return &AgencyResult{RequestID: req.RequestID, OK: true, AgencyID: created.ID().String()}, nil
}

func (s *AgencyService) addMember(ctx context.Context, req AgencyRequest) (*AgencyResult, error) {
	agencyID, err := uuid.Parse(strings.TrimSpace(req.AgencyID))
	if err != nil {
		return nil, serrors.InvalidPayload("agency_id must be a uuid")
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, serrors.InvalidPayload("user_id must be a uuid")
	}

	if _, err := s.agencies.GetByID(ctx, agencyID); err != nil {
		if errors.Is(err, agency.ErrNotFound) {
			return nil, serrors.AgencyNotFound()
		}
		return nil, serrors.DBReadFailed(err)
	}

	if err := s.agencies.AddMember(ctx, agencyID, userID); err != nil {
		return nil, serrors.DBWriteFailed("failed to add agency member")
	}

	s.publisher.Publish(AgencyMemberAddedEvent{AgencyID: agencyID, UserID: userID})
	return &AgencyResult{RequestID: req.RequestID, OK: true, AgencyID: agencyID.String()}, nil
}
