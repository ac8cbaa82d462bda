package entity

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeClient   Type = "Client"
	TypeProspect Type = "Prospect"
)

func (t Type) IsValid() bool {
	return t == TypeClient || t == TypeProspect
}

// Entity is a client or prospect tracked by an agency. An entity with no
// agency is orphaned and pending reassignment by a super-admin.
type Entity struct {
	id           uuid.UUID
	agencyID     *uuid.UUID
	entityType   Type
	name         string
	address      *string
	siret        *string
	clientNumber *string
	accountType  *string
	archivedAt   *time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

type Option func(*Entity)

func WithID(id uuid.UUID) Option {
	return func(e *Entity) {
		e.id = id
	}
}

func WithAgencyID(agencyID *uuid.UUID) Option {
	return func(e *Entity) {
		e.agencyID = agencyID
	}
}

func WithAddress(address *string) Option {
	return func(e *Entity) {
		e.address = address
	}
}

func WithSiret(siret *string) Option {
	return func(e *Entity) {
		e.siret = siret
	}
}

func WithClientNumber(clientNumber *string) Option {
	return func(e *Entity) {
		e.clientNumber = clientNumber
	}
}

func WithAccountType(accountType *string) Option {
	return func(e *Entity) {
		e.accountType = accountType
	}
}

func WithArchivedAt(archivedAt *time.Time) Option {
	return func(e *Entity) {
		e.archivedAt = archivedAt
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(e *Entity) {
		e.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(e *Entity) {
		e.updatedAt = updatedAt
	}
}

func New(name string, entityType Type, opts ...Option) *Entity {
	e := &Entity{
		id:         uuid.New(),
		name:       name,
		entityType: entityType,
		createdAt:  time.Now(),
		updatedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Entity) ID() uuid.UUID {
	return e.id
}

func (e *Entity) AgencyID() *uuid.UUID {
	return e.agencyID
}

func (e *Entity) IsOrphan() bool {
	return e.agencyID == nil
}

func (e *Entity) Type() Type {
	return e.entityType
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) Address() *string {
	return e.address
}

func (e *Entity) Siret() *string {
	return e.siret
}

func (e *Entity) ClientNumber() *string {
	return e.clientNumber
}

func (e *Entity) AccountType() *string {
	return e.accountType
}

func (e *Entity) ArchivedAt() *time.Time {
	return e.archivedAt
}

func (e *Entity) IsArchived() bool {
	return e.archivedAt != nil
}

func (e *Entity) CreatedAt() time.Time {
	return e.createdAt
}

func (e *Entity) UpdatedAt() time.Time {
	return e.updatedAt
}
