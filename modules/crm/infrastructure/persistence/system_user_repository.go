package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/systemuser"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	systemUserFindQuery = `
        SELECT user_id FROM agency_system_users
        WHERE COALESCE(agency_id::text, 'orphan') = COALESCE($1::text, 'orphan')`

	// The expression index on COALESCE(agency_id::text, 'orphan') makes the
	// nil slot conflict like any other, so two racing provisioners converge
	// on whichever row landed first.
	systemUserUpsertQuery = `
        INSERT INTO agency_system_users (agency_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT ((COALESCE(agency_id::text, 'orphan'))) DO UPDATE
            SET agency_id = agency_system_users.agency_id
        RETURNING user_id`
)

type PgSystemUserRepository struct{}

func NewSystemUserRepository() systemuser.Repository {
	return &PgSystemUserRepository{}
}

func (g *PgSystemUserRepository) Get(ctx context.Context, agencyID *uuid.UUID) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to get transaction")
	}

	var userIDStr string
	if err := tx.QueryRow(ctx, systemUserFindQuery, agencyID).Scan(&userIDStr); err != nil {
		if isNoRows(err) {
			return uuid.Nil, systemuser.ErrNotFound
		}
		return uuid.Nil, errors.Wrap(err, "failed to query system user mapping")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid system user id")
	}
	return userID, nil
}

func (g *PgSystemUserRepository) Upsert(ctx context.Context, agencyID *uuid.UUID, userID uuid.UUID) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to get transaction")
	}

	var winnerStr string
	if err := tx.QueryRow(ctx, systemUserUpsertQuery, agencyID, userID).Scan(&winnerStr); err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to upsert system user mapping")
	}
	winner, err := uuid.Parse(winnerStr)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid system user id")
	}
	return winner, nil
}
