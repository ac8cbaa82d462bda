package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/systemuser"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	userScope = "admin-users"

	profilePollAttempts = 5
	profilePollDelay    = 200 * time.Millisecond
)

type DeleteUserResult struct {
	RequestID                    string   `json:"request_id"`
	OK                           bool     `json:"ok"`
	AnonymizedInteractions       int64    `json:"anonymized_interactions"`
	AnonymizedAgencyIDs          []string `json:"anonymized_agency_ids"`
	AnonymizedOrphanInteractions int64    `json:"anonymized_orphan_interactions"`
}

// UserService runs the reassignment and anonymization pipeline around user
// deletion. Deleting a user must never leave interactions pointing at a
// nonexistent owner, so every owned interaction is first handed to a
// provisioned system user; only then is the authentication identity removed.
// Each step is individually idempotent, so a crashed run can be re-invoked.
type UserService struct {
	interactions interaction.Repository
	systemUsers  systemuser.Repository
	profiles     profile.Repository
	agencies     agency.Repository
	admin        identity.AdminClient
	limiter      ratelimit.Checker
	publisher    eventbus.EventBus

	pollAttempts int
	pollDelay    time.Duration
}

func NewUserService(
	interactions interaction.Repository,
	systemUsers systemuser.Repository,
	profiles profile.Repository,
	agencies agency.Repository,
	admin identity.AdminClient,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *UserService {
	return &UserService{
		interactions: interactions,
		systemUsers:  systemUsers,
		profiles:     profiles,
		agencies:     agencies,
		admin:        admin,
		limiter:      limiter,
		publisher:    publisher,
		pollAttempts: profilePollAttempts,
		pollDelay:    profilePollDelay,
	}
}

func (s *UserService) DeleteUser(ctx context.Context, requestID string, targetUserID uuid.UUID) (*DeleteUserResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, userScope, caller.UserID.String()); err != nil {
		return nil, err
	}
	// Deleting a user cascades reassignment across every tenant the target
	// ever wrote in, so it carries the same privilege bar as reassignment.
	if !caller.IsSuperAdmin {
		return nil, serrors.Forbidden("only super-admins may delete users")
	}

	if caller.UserID == targetUserID {
		return nil, serrors.UserDeleteSelfForbidden()
	}
	if _, err := s.profiles.GetByUserID(ctx, targetUserID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, serrors.UserNotFound()
		}
		return nil, serrors.DBReadFailed(err)
	}

	agencyIDs, hasOrphan, err := s.interactions.CreatorAgencyIDs(ctx, targetUserID)
	if err != nil {
		return nil, serrors.DBReadFailed(err)
	}

	log := composables.UseLogger(ctx)

	var total int64
	touched := make([]string, 0, len(agencyIDs))
	for _, agencyID := range agencyIDs {
		systemUserID, err := s.ensureSystemUser(ctx, &agencyID)
		if err != nil {
			return nil, err
		}
		moved, err := s.interactions.ReassignCreator(ctx, targetUserID, systemUserID, &agencyID)
		if err != nil {
			return nil, serrors.DBWriteFailed("failed to reassign interactions")
		}
		total += moved
		touched = append(touched, agencyID.String())
		log.WithField("agency_id", agencyID).WithField("moved", moved).
			Info("reassigned interactions to agency system user")
	}

	var orphanMoved int64
	if hasOrphan {
		systemUserID, err := s.ensureSystemUser(ctx, nil)
		if err != nil {
			return nil, err
		}
		orphanMoved, err = s.interactions.ReassignCreator(ctx, targetUserID, systemUserID, nil)
		if err != nil {
			return nil, serrors.DBWriteFailed("failed to reassign orphan interactions")
		}
		total += orphanMoved
	}

	// Identity deletion comes last: everything the pipeline is responsible for
	// has been rehomed, so a provider-side FK refusal means a missed reference
	// and must surface rather than cascade.
	if err := s.admin.DeleteUser(ctx, targetUserID); err != nil {
		switch {
		case errors.Is(err, identity.ErrIdentityNotFound):
			return nil, serrors.UserNotFound()
		case errors.Is(err, identity.ErrIdentityReferenced):
			return nil, serrors.UserDeleteReferenced()
		default:
			return nil, serrors.DBWriteFailed("failed to delete identity")
		}
	}

	s.publisher.Publish(UserDeletedEvent{UserID: targetUserID, AnonymizedInteractions: total})
	return &DeleteUserResult{
		RequestID:                    requestID,
		OK:                           true,
		AnonymizedInteractions:       total,
		AnonymizedAgencyIDs:          touched,
		AnonymizedOrphanInteractions: orphanMoved,
	}, nil
}

// ensureSystemUser lazily provisions the agency's system user (nil = the
// global orphan one). Concurrent provisioning attempts converge through the
// mapping upsert; an identity-level email collision resolves by re-reading
// the existing identity instead of failing.
func (s *UserService) ensureSystemUser(ctx context.Context, agencyID *uuid.UUID) (uuid.UUID, error) {
	existing, err := s.systemUsers.Get(ctx, agencyID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, systemuser.ErrNotFound) {
		return uuid.Nil, serrors.DBReadFailed(err)
	}

	email := systemuser.EmailForAgency(agencyID)
	userID, err := s.admin.CreateUser(ctx, identity.CreateUserParams{
		Email:    email,
		Banned:   true,
		IsSystem: true,
	})
	if errors.Is(err, identity.ErrEmailExists) {
		userID, err = s.admin.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return uuid.Nil, serrors.SystemUserProvisionFailed(err)
	}

	if err := s.waitForProfile(ctx, userID); err != nil {
		return uuid.Nil, err
	}
	if err := s.profiles.MarkSystem(ctx, userID); err != nil {
		return uuid.Nil, serrors.DBWriteFailed("failed to mark system profile")
	}
	if agencyID != nil {
		if err := s.agencies.AddMember(ctx, *agencyID, userID); err != nil {
			return uuid.Nil, serrors.DBWriteFailed("failed to join system user to agency")
		}
	}

	winner, err := s.systemUsers.Upsert(ctx, agencyID, userID)
	if err != nil {
		return uuid.Nil, serrors.DBWriteFailed("failed to persist system user mapping")
	}
	return winner, nil
}

// waitForProfile polls for the profile row the auth provider materializes
// asynchronously after identity creation.
func (s *UserService) waitForProfile(ctx context.Context, userID uuid.UUID) error {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return serrors.ProfileCreateFailed()
			case <-time.After(s.pollDelay):
			}
		}
		_, err := s.profiles.GetByUserID(ctx, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, profile.ErrNotFound) {
			return serrors.DBReadFailed(err)
		}
	}
	return serrors.ProfileCreateFailed()
}
