package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/repo"
)

const (
	interactionFindQuery = `
        SELECT
            i.id,
            i.agency_id,
            i.entity_id,
            i.contact_id,
            i.status_id,
            i.status,
            i.order_ref,
            i.reminder_at,
            i.notes,
            i.last_action_at,
            i.status_is_terminal,
            i.mega_families,
            i.timeline,
            i.created_by,
            i.created_at,
            i.updated_at
        FROM interactions i`

	// Creation and full-row replace share one code path: on id conflict every
	// column except the id is overwritten.
	interactionUpsertQuery = `
        INSERT INTO interactions (
            id, agency_id, entity_id, contact_id, status_id, status, order_ref,
            reminder_at, notes, last_action_at, status_is_terminal,
            mega_families, timeline, created_by, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (id) DO UPDATE SET
            agency_id = EXCLUDED.agency_id,
            entity_id = EXCLUDED.entity_id,
            contact_id = EXCLUDED.contact_id,
            status_id = EXCLUDED.status_id,
            status = EXCLUDED.status,
            order_ref = EXCLUDED.order_ref,
            reminder_at = EXCLUDED.reminder_at,
            notes = EXCLUDED.notes,
            last_action_at = EXCLUDED.last_action_at,
            status_is_terminal = EXCLUDED.status_is_terminal,
            mega_families = EXCLUDED.mega_families,
            timeline = EXCLUDED.timeline,
            created_by = EXCLUDED.created_by,
            created_at = EXCLUDED.created_at,
            updated_at = EXCLUDED.updated_at`

	interactionPropagateQuery = `
        UPDATE interactions
        SET agency_id = $2, updated_at = now()
        WHERE entity_id = $1 AND agency_id IS NULL`

	interactionCreatorAgenciesQuery = `
        SELECT DISTINCT agency_id FROM interactions
        WHERE created_by = $1 AND agency_id IS NOT NULL`

	interactionReassignCreatorQuery = `
        UPDATE interactions SET created_by = $2
        WHERE created_by = $1 AND agency_id = $3`

	interactionReassignCreatorOrphanQuery = `
        UPDATE interactions SET created_by = $2
        WHERE created_by = $1 AND agency_id IS NULL`
)

var interactionCreatorHasOrphanQuery = repo.Exists(
	`SELECT 1 FROM interactions WHERE created_by = $1 AND agency_id IS NULL`,
)

type PgInteractionRepository struct{}

func NewInteractionRepository() interaction.Repository {
	return &PgInteractionRepository{}
}

func (g *PgInteractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*interaction.Interaction, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row models.Interaction
	err = tx.QueryRow(ctx, repo.Join(interactionFindQuery, repo.JoinWhere("i.id = $1")), id).Scan(
		&row.ID,
		&row.AgencyID,
		&row.EntityID,
		&row.ContactID,
		&row.StatusID,
		&row.Status,
		&row.OrderRef,
		&row.ReminderAt,
		&row.Notes,
		&row.LastActionAt,
		&row.StatusIsTerminal,
		&row.MegaFamilies,
		&row.Timeline,
		&row.CreatedBy,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, interaction.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query interaction")
	}
	return ToDomainInteraction(&row)
}

func (g *PgInteractionRepository) Upsert(ctx context.Context, data *interaction.Interaction) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row, err := ToDBInteraction(data)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		ctx,
		interactionUpsertQuery,
		row.ID,
		row.AgencyID,
		row.EntityID,
		row.ContactID,
		row.StatusID,
		row.Status,
		row.OrderRef,
		row.ReminderAt,
		row.Notes,
		row.LastActionAt,
		row.StatusIsTerminal,
		row.MegaFamilies,
		row.Timeline,
		row.CreatedBy,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert interaction")
	}
	return nil
}

func (g *PgInteractionRepository) UpdateWithVersion(
	ctx context.Context,
	id uuid.UUID,
	expectedUpdatedAt time.Time,
	timeline []interaction.Event,
	patch interaction.Patch,
) (time.Time, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to get transaction")
	}

	encoded, err := json.Marshal(timeline)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to encode timeline")
	}

	newVersion := time.Now().UTC()
	fields := []string{"timeline", "updated_at"}
	args := []any{encoded, newVersion}

	// Deterministic column order keeps statements cacheable.
	patched := patch.Assignments()
	columns := make([]string, 0, len(patched))
	for col := range patched {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		fields = append(fields, col)
		args = append(args, patched[col])
	}

	// The version check rides in the same statement as the write, so two
	// racing callers with the same observed version cannot both commit.
	query := repo.Update(
		"interactions",
		fields,
		fmt.Sprintf("id = $%d", len(args)+1),
		fmt.Sprintf("updated_at = $%d", len(args)+2),
	)
	args = append(args, id, expectedUpdatedAt)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to update interaction")
	}
	if tag.RowsAffected() == 0 {
		return time.Time{}, false, nil
	}
	return newVersion, true, nil
}

func (g *PgInteractionRepository) PropagateAgency(ctx context.Context, entityID, agencyID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, interactionPropagateQuery, entityID, agencyID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to propagate agency to interactions")
	}
	return tag.RowsAffected(), nil
}

func (g *PgInteractionRepository) CreatorAgencyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, interactionCreatorAgenciesQuery, userID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to query creator agencies")
	}
	defer rows.Close()

	var agencyIDs []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, false, errors.Wrap(err, "failed to scan agency id")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, false, errors.Wrap(err, "invalid agency id")
		}
		agencyIDs = append(agencyIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, false, errors.Wrap(err, "row iteration error")
	}

	hasOrphan := false
	if err := tx.QueryRow(ctx, interactionCreatorHasOrphanQuery, userID).Scan(&hasOrphan); err != nil {
		return nil, false, errors.Wrap(err, "failed to check orphan interactions")
	}
	return agencyIDs, hasOrphan, nil
}

func (g *PgInteractionRepository) ReassignCreator(
	ctx context.Context,
	fromUserID, toUserID uuid.UUID,
	agencyID *uuid.UUID,
) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}

	if agencyID == nil {
		tag, err := tx.Exec(ctx, interactionReassignCreatorOrphanQuery, fromUserID, toUserID)
		if err != nil {
			return 0, errors.Wrap(err, "failed to reassign orphan interactions")
		}
		return tag.RowsAffected(), nil
	}

	tag, err := tx.Exec(ctx, interactionReassignCreatorQuery, fromUserID, toUserID, *agencyID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to reassign interactions")
	}
	return tag.RowsAffected(), nil
}
