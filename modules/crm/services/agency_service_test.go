package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agenceo/agenceo/pkg/serrors"
)

func newAgencyService(agencies *fakeAgencyRepo) *AgencyService {
	return NewAgencyService(agencies, testLimiter(), testPublisher())
}

func TestAgencyService_Create(t *testing.T) {
	t.Parallel()

	t.Run("creates with a trimmed name", func(t *testing.T) {
		t.Parallel()
		agencies := newFakeAgencyRepo()
		svc := newAgencyService(agencies)

		res, err := svc.HandleAction(testContext(superAdminCaller()), AgencyRequest{
			Action:    AgencyActionCreate,
			RequestID: "req-1",
			Name:      "  Agence Nord ",
		})
		require.NoError(t, err)
		require.True(t, res.OK)

		created, err := agencies.GetByID(context.Background(), uuid.MustParse(res.AgencyID))
		require.NoError(t, err)
		require.Equal(t, "Agence Nord", created.Name())
	})

	t.Run("duplicate name is a conflict, case-insensitively", func(t *testing.T) {
		t.Parallel()
		agencies := newFakeAgencyRepo()
		svc := newAgencyService(agencies)
		ctx := testContext(superAdminCaller())

		_, err := svc.HandleAction(ctx, AgencyRequest{Action: AgencyActionCreate, Name: "Agence Sud"})
		require.NoError(t, err)

		_, err = svc.HandleAction(ctx, AgencyRequest{Action: AgencyActionCreate, Name: "agence sud"})
		require.True(t, serrors.IsCode(err, "AGENCY_NAME_EXISTS"))
	})

	t.Run("blank name", func(t *testing.T) {
		t.Parallel()
		svc := newAgencyService(newFakeAgencyRepo())
		_, err := svc.HandleAction(testContext(superAdminCaller()), AgencyRequest{
			Action: AgencyActionCreate,
			Name:   "   ",
		})
		require.True(t, serrors.IsCode(err, "VALIDATION_ERROR"))
	})

	t.Run("members cannot manage agencies", func(t *testing.T) {
		t.Parallel()
		svc := newAgencyService(newFakeAgencyRepo())
		_, err := svc.HandleAction(testContext(memberCaller(uuid.New())), AgencyRequest{
			Action: AgencyActionCreate,
			Name:   "Agence Est",
		})
		require.True(t, serrors.IsCode(err, "AUTH_FORBIDDEN"))
	})
}

func TestAgencyService_AddMember(t *testing.T) {
	t.Parallel()

	t.Run("grants membership idempotently", func(t *testing.T) {
		t.Parallel()
		agencies := newFakeAgencyRepo()
		svc := newAgencyService(agencies)
		ctx := testContext(superAdminCaller())

		created, err := svc.HandleAction(ctx, AgencyRequest{Action: AgencyActionCreate, Name: "Agence Ouest"})
		require.NoError(t, err)
		userID := uuid.New()

		for i := 0; i < 2; i++ {
			_, err = svc.HandleAction(ctx, AgencyRequest{
				Action:   AgencyActionAddMember,
				AgencyID: created.AgencyID,
				UserID:   userID.String(),
			})
			require.NoError(t, err)
		}

		memberships, err := agencies.AgencyIDsByUser(context.Background(), userID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{uuid.MustParse(created.AgencyID)}, memberships)
	})

	t.Run("missing agency", func(t *testing.T) {
		t.Parallel()
		svc := newAgencyService(newFakeAgencyRepo())
		_, err := svc.HandleAction(testContext(superAdminCaller()), AgencyRequest{
			Action:   AgencyActionAddMember,
			AgencyID: uuid.NewString(),
			UserID:   uuid.NewString(),
		})
		require.True(t, serrors.IsCode(err, "AGENCY_NOT_FOUND"))
	})

	t.Run("non-uuid ids", func(t *testing.T) {
		t.Parallel()
		svc := newAgencyService(newFakeAgencyRepo())
		_, err := svc.HandleAction(testContext(superAdminCaller()), AgencyRequest{
			Action:   AgencyActionAddMember,
			AgencyID: "nord",
			UserID:   uuid.NewString(),
		})
		require.True(t, serrors.IsCode(err, "INVALID_PAYLOAD"))
	})
}
