package contact

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("contact not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	Create(ctx context.Context, data *Contact) error
	Update(ctx context.Context, data *Contact) error
	Delete(ctx context.Context, id uuid.UUID) error
}
