package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	profileFindQuery = `
        SELECT
            p.user_id,
            p.email,
            p.display_name,
            p.must_change_password,
            p.is_super_admin,
            p.is_system,
            p.banned_at
        FROM profiles p`

	profileClearMustChangeQuery = `
        UPDATE profiles SET must_change_password = FALSE WHERE user_id = $1`

	profileMarkSystemQuery = `
        UPDATE profiles SET is_system = TRUE WHERE user_id = $1`
)

type PgProfileRepository struct{}

func NewProfileRepository() profile.Repository {
	return &PgProfileRepository{}
}

func (g *PgProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*profile.Profile, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row models.Profile
	err = tx.QueryRow(ctx, profileFindQuery+" WHERE p.user_id = $1", userID).Scan(
		&row.UserID,
		&row.Email,
		&row.DisplayName,
		&row.MustChangePassword,
		&row.IsSuperAdmin,
		&row.IsSystem,
		&row.BannedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, profile.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query profile")
	}
	return ToDomainProfile(&row)
}

func (g *PgProfileRepository) ClearMustChangePassword(ctx context.Context, userID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	tag, err := tx.Exec(ctx, profileClearMustChangeQuery, userID)
	if err != nil {
		return errors.Wrap(err, "failed to clear password flag")
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}

func (g *PgProfileRepository) MarkSystem(ctx context.Context, userID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, profileMarkSystemQuery, userID)
	if err != nil {
		return errors.Wrap(err, "failed to mark system profile")
	}
	return nil
}
