package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
)

func newTestEntity(t *testing.T, repo *fakeEntityRepo, agencyID *uuid.UUID) *entity.Entity {
	t.Helper()
	e := entity.New("Acme SARL", entity.TypeProspect, entity.WithAgencyID(agencyID))
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func newTestContact(t *testing.T, repo *fakeContactRepo, entityID uuid.UUID) *contact.Contact {
	t.Helper()
	c := contact.New(entityID, "Marie", "Dupont")
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func newTestAgency(t *testing.T, repo *fakeAgencyRepo, opts ...agency.Option) *agency.Agency {
	t.Helper()
	a := agency.New("Agence Nord", opts...)
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func newTestInteraction(t *testing.T, repo *fakeInteractionRepo, createdBy uuid.UUID, opts ...interaction.Option) *interaction.Interaction {
	t.Helper()
	i := interaction.New(createdBy, opts...)
	require.NoError(t, repo.Upsert(context.Background(), i))
	return i
}
