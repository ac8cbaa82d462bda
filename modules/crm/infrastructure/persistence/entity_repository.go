package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	entityFindQuery = `
        SELECT
            e.id,
            e.agency_id,
            e.entity_type,
            e.name,
            e.address,
            e.siret,
            e.client_number,
            e.account_type,
            e.archived_at,
            e.created_at,
            e.updated_at
        FROM entities e`

	entityInsertQuery = `
        INSERT INTO entities (
            id, agency_id, entity_type, name, address, siret,
            client_number, account_type, archived_at, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	entityUpdateQuery = `
        UPDATE entities SET
            agency_id = $1,
            entity_type = $2,
            name = $3,
            address = $4,
            siret = $5,
            client_number = $6,
            account_type = $7,
            updated_at = now()
        WHERE id = $8`

	entitySetArchivedQuery = `
        UPDATE entities
        SET archived_at = CASE WHEN $2 THEN now() ELSE NULL END, updated_at = now()
        WHERE id = $1`

	// Conditioned on not already being a client: the write itself carries the
	// precondition instead of a read-check-then-write sequence.
	entityConvertQuery = `
        UPDATE entities
        SET entity_type = 'Client', client_number = $2, updated_at = now()
        WHERE id = $1 AND entity_type <> 'Client'`

	// Conditioned on being orphaned: reassignment happens exactly once.
	entityAssignAgencyQuery = `
        UPDATE entities
        SET agency_id = $2, updated_at = now()
        WHERE id = $1 AND agency_id IS NULL`
)

type PgEntityRepository struct{}

func NewEntityRepository() entity.Repository {
	return &PgEntityRepository{}
}

func (g *PgEntityRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Entity, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row models.Entity
	err = tx.QueryRow(ctx, entityFindQuery+" WHERE e.id = $1", id).Scan(
		&row.ID,
		&row.AgencyID,
		&row.EntityType,
		&row.Name,
		&row.Address,
		&row.Siret,
		&row.ClientNumber,
		&row.AccountType,
		&row.ArchivedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, entity.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query entity")
	}
	return ToDomainEntity(&row)
}

func (g *PgEntityRepository) Create(ctx context.Context, data *entity.Entity) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row := ToDBEntity(data)
	_, err = tx.Exec(
		ctx,
		entityInsertQuery,
		row.ID,
		row.AgencyID,
		row.EntityType,
		row.Name,
		row.Address,
		row.Siret,
		row.ClientNumber,
		row.AccountType,
		row.ArchivedAt,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert entity")
	}
	return nil
}

func (g *PgEntityRepository) Update(ctx context.Context, data *entity.Entity) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row := ToDBEntity(data)
	tag, err := tx.Exec(
		ctx,
		entityUpdateQuery,
		row.AgencyID,
		row.EntityType,
		row.Name,
		row.Address,
		row.Siret,
		row.ClientNumber,
		row.AccountType,
		row.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update entity")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNoRowsAffected
	}
	return nil
}

func (g *PgEntityRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, entitySetArchivedQuery, id, archived)
	if err != nil {
		return errors.Wrap(err, "failed to set entity archived state")
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNoRowsAffected
	}
	return nil
}

func (g *PgEntityRepository) ConvertToClient(ctx context.Context, id uuid.UUID, clientNumber string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, entityConvertQuery, id, clientNumber)
	if err != nil {
		return false, errors.Wrap(err, "failed to convert entity to client")
	}
	return tag.RowsAffected() > 0, nil
}

func (g *PgEntityRepository) AssignAgency(ctx context.Context, id uuid.UUID, agencyID uuid.UUID) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, entityAssignAgencyQuery, id, agencyID)
	if err != nil {
		return false, errors.Wrap(err, "failed to assign entity agency")
	}
	return tag.RowsAffected() > 0, nil
}
