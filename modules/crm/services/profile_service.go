package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	profileScope = "profile"

	ProfileActionPasswordChanged = "password_changed"
)

type ProfileRequest struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

type ProfileResult struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
}

// ProfileService handles the single self-service profile action.
type ProfileService struct {
	profiles profile.Repository
	limiter  ratelimit.Checker
}

func NewProfileService(profiles profile.Repository, limiter ratelimit.Checker) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		limiter:  limiter,
	}
}

func (s *ProfileService) HandleAction(ctx context.Context, req ProfileRequest) (*ProfileResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, profileScope, caller.UserID.String()); err != nil {
		return nil, err
	}

	switch req.Action {
	case ProfileActionPasswordChanged:
		// Only ever the caller's own flag; no target user in the payload.
		if err := s.profiles.ClearMustChangePassword(ctx, caller.UserID); err != nil {
			if errors.Is(err, profile.ErrNotFound) {
				return nil, serrors.NotFound("profile not found")
			}
			return nil, serrors.DBWriteFailed("failed to clear password flag")
		}
		return &ProfileResult{RequestID: req.RequestID, OK: true}, nil
	default:
		return nil, serrors.ActionRequired()
	}
}
