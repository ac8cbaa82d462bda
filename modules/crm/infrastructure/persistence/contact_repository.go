package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
	"github.com/agenceo/agenceo/pkg/composables"
)

const (
	contactFindQuery = `
        SELECT
            c.id,
            c.entity_id,
            c.first_name,
            c.last_name,
            c.role,
            c.email,
            c.phone,
            c.created_at,
            c.updated_at
        FROM entity_contacts c`

	contactInsertQuery = `
        INSERT INTO entity_contacts (
            id, entity_id, first_name, last_name, role, email, phone, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	contactUpdateQuery = `
        UPDATE entity_contacts SET
            first_name = $1,
            last_name = $2,
            role = $3,
            email = $4,
            phone = $5,
            updated_at = now()
        WHERE id = $6`

	contactDeleteQuery = `DELETE FROM entity_contacts WHERE id = $1`
)

type PgContactRepository struct{}

func NewContactRepository() contact.Repository {
	return &PgContactRepository{}
}

func (g *PgContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*contact.Contact, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row models.Contact
	err = tx.QueryRow(ctx, contactFindQuery+" WHERE c.id = $1", id).Scan(
		&row.ID,
		&row.EntityID,
		&row.FirstName,
		&row.LastName,
		&row.Role,
		&row.Email,
		&row.Phone,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, contact.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query contact")
	}
	return ToDomainContact(&row)
}

func (g *PgContactRepository) Create(ctx context.Context, data *contact.Contact) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row := ToDBContact(data)
	_, err = tx.Exec(
		ctx,
		contactInsertQuery,
		row.ID,
		row.EntityID,
		row.FirstName,
		row.LastName,
		row.Role,
		row.Email,
		row.Phone,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert contact")
	}
	return nil
}

func (g *PgContactRepository) Update(ctx context.Context, data *contact.Contact) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	row := ToDBContact(data)
	tag, err := tx.Exec(
		ctx,
		contactUpdateQuery,
		row.FirstName,
		row.LastName,
		row.Role,
		row.Email,
		row.Phone,
		row.ID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update contact")
	}
	if tag.RowsAffected() == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (g *PgContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	_, err = tx.Exec(ctx, contactDeleteQuery, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete contact")
	}
	return nil
}
