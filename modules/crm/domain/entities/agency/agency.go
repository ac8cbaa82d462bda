package agency

import (
	"time"

	"github.com/google/uuid"
)

// Agency is the tenant boundary. Every agency-scoped resource is visible only
// to its members or a super-admin.
type Agency struct {
	id         uuid.UUID
	name       string
	archivedAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

type Option func(*Agency)

func WithID(id uuid.UUID) Option {
	return func(a *Agency) {
		a.id = id
	}
}

func WithArchivedAt(archivedAt *time.Time) Option {
	return func(a *Agency) {
		a.archivedAt = archivedAt
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(a *Agency) {
		a.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(a *Agency) {
		a.updatedAt = updatedAt
	}
}

func New(name string, opts ...Option) *Agency {
	a := &Agency{
		id:        uuid.New(),
		name:      name,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agency) ID() uuid.UUID {
	return a.id
}

func (a *Agency) Name() string {
	return a.name
}

func (a *Agency) ArchivedAt() *time.Time {
	return a.archivedAt
}

func (a *Agency) IsArchived() bool {
	return a.archivedAt != nil
}

func (a *Agency) CreatedAt() time.Time {
	return a.createdAt
}

func (a *Agency) UpdatedAt() time.Time {
	return a.updatedAt
}
