package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/repo"
)

const (
	agencyFindQuery = `
        SELECT
            a.id,
            a.name,
            a.archived_at,
            a.created_at,
            a.updated_at
        FROM agencies a`

	agencyMemberIDsQuery = `SELECT agency_id FROM agency_members WHERE user_id = $1`
)

var (
	agencyInsertQuery = repo.Insert(
		"agencies",
		[]string{"id", "name", "archived_at", "created_at", "updated_at"},
	)

	agencyMemberInsertQuery = repo.Join(
		repo.Insert("agency_members", []string{"agency_id", "user_id"}),
		"ON CONFLICT (agency_id, user_id) DO NOTHING",
	)
)

type PgAgencyRepository struct{}

func NewAgencyRepository() agency.Repository {
	return &PgAgencyRepository{}
}

func (g *PgAgencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*agency.Agency, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row models.Agency
	err = tx.QueryRow(ctx, repo.Join(agencyFindQuery, repo.JoinWhere("a.id = $1")), id).Scan(
		&row.ID,
		&row.Name,
		&row.ArchivedAt,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, agency.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query agency")
	}
	return ToDomainAgency(&row)
}

func (g *PgAgencyRepository) Create(ctx context.Context, data *agency.Agency) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(
		ctx,
		agencyInsertQuery,
		data.ID(),
		data.Name(),
		data.ArchivedAt(),
		data.CreatedAt(),
		data.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return agency.ErrNameTaken
		}
		return errors.Wrap(err, "failed to insert agency")
	}
	return nil
}

func (g *PgAgencyRepository) AddMember(ctx context.Context, agencyID, userID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, agencyMemberInsertQuery, agencyID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to insert agency member")
	}
	return nil
}

func (g *PgAgencyRepository) AgencyIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, agencyMemberIDsQuery, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query agency memberships")
	}
	defer rows.Close()

	var agencyIDs []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, errors.Wrap(err, "failed to scan agency id")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrap(err, "invalid agency id")
		}
		agencyIDs = append(agencyIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return agencyIDs, nil
}
