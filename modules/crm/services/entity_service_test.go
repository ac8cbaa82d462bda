package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/pkg/serrors"
)

type entityServiceFixture struct {
	entities     *fakeEntityRepo
	agencies     *fakeAgencyRepo
	interactions *fakeInteractionRepo
	service      *EntityService
}

func newEntityServiceFixture() *entityServiceFixture {
	entities := newFakeEntityRepo()
	agencies := newFakeAgencyRepo()
	interactions := newFakeInteractionRepo()
	guard := NewAccessGuard(entities, newFakeContactRepo())
	return &entityServiceFixture{
		entities:     entities,
		agencies:     agencies,
		interactions: interactions,
		service:      NewEntityService(entities, agencies, interactions, guard, testLimiter(), testPublisher()),
	}
}

func TestEntityService_Save(t *testing.T) {
	t.Parallel()

	t.Run("creates a prospect with normalized fields", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()
		caller := memberCaller(agencyID)

		address := "  12 rue de la Paix  "
		empty := "   "
		res, err := f.service.HandleAction(testContext(caller), EntityRequest{
			Action:     EntityActionSave,
			RequestID:  "req-1",
			AgencyID:   agencyID.String(),
			EntityType: "Prospect",
			Name:       "  Acme SARL  ",
			Address:    &address,
			Siret:      &empty,
		})
		require.NoError(t, err)
		require.True(t, res.OK)
		require.Equal(t, "req-1", res.RequestID)

		saved, err := f.entities.GetByID(context.Background(), uuid.MustParse(res.EntityID))
		require.NoError(t, err)
		require.Equal(t, "Acme SARL", saved.Name())
		require.Equal(t, "12 rue de la Paix", *saved.Address())
		require.Nil(t, saved.Siret(), "empty optional strings become null")
		require.Nil(t, saved.ClientNumber(), "client-only subset is dropped for prospects")
	})

	t.Run("strips whitespace from client number", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()
		caller := memberCaller(agencyID)

		clientNumber := " 12 34\t56 "
		res, err := f.service.HandleAction(testContext(caller), EntityRequest{
			Action:       EntityActionSave,
			AgencyID:     agencyID.String(),
			EntityType:   "Client",
			Name:         "Acme",
			ClientNumber: &clientNumber,
		})
		require.NoError(t, err)

		saved, err := f.entities.GetByID(context.Background(), uuid.MustParse(res.EntityID))
		require.NoError(t, err)
		require.Equal(t, "123456", *saved.ClientNumber())
	})

	t.Run("update of unknown id fails as write error", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()

		_, err := f.service.HandleAction(testContext(memberCaller(agencyID)), EntityRequest{
			Action:     EntityActionSave,
			ID:         uuid.NewString(),
			AgencyID:   agencyID.String(),
			EntityType: "Prospect",
			Name:       "Acme",
		})
		require.True(t, serrors.IsCode(err, "DB_WRITE_FAILED"))
	})

	t.Run("foreign agency is forbidden", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		_, err := f.service.HandleAction(testContext(memberCaller(uuid.New())), EntityRequest{
			Action:     EntityActionSave,
			AgencyID:   uuid.NewString(),
			EntityType: "Prospect",
			Name:       "Acme",
		})
		require.True(t, serrors.IsCode(err, "AUTH_FORBIDDEN"))
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		_, err := f.service.HandleAction(testContext(memberCaller()), EntityRequest{Action: "explode"})
		require.True(t, serrors.IsCode(err, "ACTION_REQUIRED"))
	})
}

func TestEntityService_Archive(t *testing.T) {
	t.Parallel()

	t.Run("archive then unarchive", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()
		caller := memberCaller(agencyID)
		e := newTestEntity(t, f.entities, &agencyID)

		_, err := f.service.HandleAction(testContext(caller), EntityRequest{
			Action: EntityActionArchive,
			ID:     e.ID().String(),
		})
		require.NoError(t, err)
		archived, _ := f.entities.GetByID(context.Background(), e.ID())
		require.True(t, archived.IsArchived())

		_, err = f.service.HandleAction(testContext(caller), EntityRequest{
			Action: EntityActionUnarchive,
			ID:     e.ID().String(),
		})
		require.NoError(t, err)
		restored, _ := f.entities.GetByID(context.Background(), e.ID())
		require.False(t, restored.IsArchived())
	})

	t.Run("orphan entity is reachable by super admin only", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		e := newTestEntity(t, f.entities, nil)

		_, err := f.service.HandleAction(testContext(memberCaller(uuid.New())), EntityRequest{
			Action: EntityActionArchive,
			ID:     e.ID().String(),
		})
		require.True(t, serrors.IsCode(err, "AUTH_FORBIDDEN"))

		_, err = f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action: EntityActionArchive,
			ID:     e.ID().String(),
		})
		require.NoError(t, err)
	})
}

func TestEntityService_ConvertToClient(t *testing.T) {
	t.Parallel()

	t.Run("converts a prospect once", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()
		caller := memberCaller(agencyID)
		e := newTestEntity(t, f.entities, &agencyID)

		clientNumber := "C 100 200"
		_, err := f.service.HandleAction(testContext(caller), EntityRequest{
			Action:       EntityActionConvertToClient,
			ID:           e.ID().String(),
			ClientNumber: &clientNumber,
		})
		require.NoError(t, err)

		converted, _ := f.entities.GetByID(context.Background(), e.ID())
		require.Equal(t, entity.TypeClient, converted.Type())
		require.Equal(t, "C100200", *converted.ClientNumber())

		// Already a client: the conditioned update matches nothing.
		_, err = f.service.HandleAction(testContext(caller), EntityRequest{
			Action:       EntityActionConvertToClient,
			ID:           e.ID().String(),
			ClientNumber: &clientNumber,
		})
		require.True(t, serrors.IsCode(err, "DB_WRITE_FAILED"))
	})

	t.Run("blank client number is rejected", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		agencyID := uuid.New()
		e := newTestEntity(t, f.entities, &agencyID)

		blank := "   "
		_, err := f.service.HandleAction(testContext(memberCaller(agencyID)), EntityRequest{
			Action:       EntityActionConvertToClient,
			ID:           e.ID().String(),
			ClientNumber: &blank,
		})
		require.True(t, serrors.IsCode(err, "VALIDATION_ERROR"))
	})
}

func TestEntityService_Reassign(t *testing.T) {
	t.Parallel()

	t.Run("assigns orphan and propagates to orphan interactions only", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		target := newTestAgency(t, f.agencies)
		e := newTestEntity(t, f.entities, nil)
		entityID := e.ID()
		otherAgency := uuid.New()
		owner := uuid.New()

		newTestInteraction(t, f.interactions, owner, interaction.WithEntityID(&entityID))
		newTestInteraction(t, f.interactions, owner, interaction.WithEntityID(&entityID))
		scoped := newTestInteraction(t, f.interactions, owner,
			interaction.WithEntityID(&entityID), interaction.WithAgencyID(&otherAgency))

		res, err := f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action:   EntityActionReassign,
			ID:       entityID.String(),
			AgencyID: target.ID().String(),
		})
		require.NoError(t, err)
		require.EqualValues(t, 2, res.PropagatedInteractions)

		assigned, _ := f.entities.GetByID(context.Background(), entityID)
		require.NotNil(t, assigned.AgencyID())
		require.Equal(t, target.ID(), *assigned.AgencyID())

		untouched, _ := f.interactions.GetByID(context.Background(), scoped.ID())
		require.Equal(t, otherAgency, *untouched.AgencyID())

		// Second reassign: the entity is no longer orphaned.
		_, err = f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action:   EntityActionReassign,
			ID:       entityID.String(),
			AgencyID: target.ID().String(),
		})
		require.True(t, serrors.IsCode(err, "VALIDATION_ERROR"))
	})

	t.Run("requires super admin", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		target := newTestAgency(t, f.agencies)
		e := newTestEntity(t, f.entities, nil)

		_, err := f.service.HandleAction(testContext(memberCaller(target.ID())), EntityRequest{
			Action:   EntityActionReassign,
			ID:       e.ID().String(),
			AgencyID: target.ID().String(),
		})
		require.True(t, serrors.IsCode(err, "AUTH_FORBIDDEN"))
	})

	t.Run("missing target agency", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		e := newTestEntity(t, f.entities, nil)

		_, err := f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action:   EntityActionReassign,
			ID:       e.ID().String(),
			AgencyID: uuid.NewString(),
		})
		require.True(t, serrors.IsCode(err, "NOT_FOUND"))
	})

	t.Run("archived target agency", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		archivedAt := time.Now()
		target := newTestAgency(t, f.agencies, agency.WithArchivedAt(&archivedAt))
		e := newTestEntity(t, f.entities, nil)

		_, err := f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action:   EntityActionReassign,
			ID:       e.ID().String(),
			AgencyID: target.ID().String(),
		})
		require.True(t, serrors.IsCode(err, "VALIDATION_ERROR"))
	})

	t.Run("missing entity", func(t *testing.T) {
		t.Parallel()
		f := newEntityServiceFixture()
		target := newTestAgency(t, f.agencies)

		_, err := f.service.HandleAction(testContext(superAdminCaller()), EntityRequest{
			Action:   EntityActionReassign,
			ID:       uuid.NewString(),
			AgencyID: target.ID().String(),
		})
		require.True(t, serrors.IsCode(err, "NOT_FOUND"))
	})
}
