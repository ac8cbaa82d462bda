package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencystatus"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	statusListQuery = `
        SELECT
            s.id,
            s.agency_id,
            s.label,
            s.category,
            s.sort_order,
            s.is_default,
            s.created_at,
            s.updated_at
        FROM agency_statuses s
        WHERE s.agency_id = $1
        ORDER BY s.sort_order, s.label`

	statusUpsertQuery = `
        INSERT INTO agency_statuses (id, agency_id, label, category, sort_order, is_default, is_terminal)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET
            label = EXCLUDED.label,
            category = EXCLUDED.category,
            sort_order = EXCLUDED.sort_order,
            is_default = EXCLUDED.is_default,
            is_terminal = EXCLUDED.is_terminal,
            updated_at = now()`

	statusDeleteQuery = `
        DELETE FROM agency_statuses
        WHERE agency_id = $1 AND id = ANY($2)`
)

type PgStatusRepository struct{}

func NewStatusRepository() agencystatus.Repository {
	return &PgStatusRepository{}
}

func (g *PgStatusRepository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*agencystatus.Status, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, statusListQuery, agencyID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query agency statuses")
	}
	defer rows.Close()

	var statuses []*agencystatus.Status
	for rows.Next() {
		var row models.AgencyStatus
		if err := rows.Scan(
			&row.ID,
			&row.AgencyID,
			&row.Label,
			&row.Category,
			&row.SortOrder,
			&row.IsDefault,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan agency status")
		}
		status, err := ToDomainStatus(&row)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return statuses, nil
}

func (g *PgStatusRepository) Upsert(ctx context.Context, data *agencystatus.Status) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(
		ctx,
		statusUpsertQuery,
		data.ID(),
		data.AgencyID(),
		data.Label(),
		string(data.Category()),
		data.SortOrder(),
		data.IsDefault(),
		data.IsTerminal(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert agency status")
	}
	return nil
}

func (g *PgStatusRepository) DeleteByIDs(ctx context.Context, agencyID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, statusDeleteQuery, agencyID, ids)
	if err != nil {
		return errors.Wrap(err, "failed to delete agency statuses")
	}
	return nil
}
