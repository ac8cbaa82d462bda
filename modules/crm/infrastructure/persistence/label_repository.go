package persistence

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencylabel"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	labelListQuery = `
        SELECT
            l.id,
            l.agency_id,
            l.kind,
            l.label,
            l.sort_order
        FROM agency_labels l
        WHERE l.agency_id = $1 AND l.kind = $2
        ORDER BY l.sort_order, l.label`

	// Matching is case-insensitive on the label text so "VIP" and "vip" are
	// one row; a resubmitted label keeps its id and only moves in the order.
	labelUpsertQuery = `
        INSERT INTO agency_labels (id, agency_id, kind, label, sort_order)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (agency_id, kind, lower(label)) DO UPDATE SET
            label = EXCLUDED.label,
            sort_order = EXCLUDED.sort_order`

	labelDeleteQuery = `
        DELETE FROM agency_labels
        WHERE agency_id = $1 AND kind = $2 AND lower(label) = ANY($3)`
)

type PgLabelRepository struct{}

func NewLabelRepository() agencylabel.Repository {
	return &PgLabelRepository{}
}

func (g *PgLabelRepository) ListByAgency(ctx context.Context, agencyID uuid.UUID, kind agencylabel.Kind) ([]agencylabel.Label, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, labelListQuery, agencyID, string(kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query agency labels")
	}
	defer rows.Close()

	var labels []agencylabel.Label
	for rows.Next() {
		var row models.AgencyLabel
		if err := rows.Scan(
			&row.ID,
			&row.AgencyID,
			&row.Kind,
			&row.Label,
			&row.SortOrder,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan agency label")
		}
		label, err := ToDomainLabel(&row)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return labels, nil
}

func (g *PgLabelRepository) Upsert(ctx context.Context, agencyID uuid.UUID, kind agencylabel.Kind, label string, sortOrder int) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, labelUpsertQuery, uuid.New(), agencyID, string(kind), label, sortOrder)
	if err != nil {
		return errors.Wrap(err, "failed to upsert agency label")
	}
	return nil
}

func (g *PgLabelRepository) DeleteByLabels(ctx context.Context, agencyID uuid.UUID, kind agencylabel.Kind, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	lowered := make([]string, 0, len(labels))
	for _, l := range labels {
		lowered = append(lowered, strings.ToLower(l))
	}
	_, err = tx.Exec(ctx, labelDeleteQuery, agencyID, string(kind), lowered)
	if err != nil {
		return errors.Wrap(err, "failed to delete agency labels")
	}
	return nil
}
