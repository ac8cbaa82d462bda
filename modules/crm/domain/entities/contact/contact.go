package contact

import (
	"time"

	"github.com/google/uuid"
)

// Contact belongs to exactly one entity and inherits its agency scope for
// authorization; it carries no agency reference of its own.
type Contact struct {
	id        uuid.UUID
	entityID  uuid.UUID
	firstName string
	lastName  string
	role      *string
	email     *string
	phone     *string
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Contact)

func WithID(id uuid.UUID) Option {
	return func(c *Contact) {
		c.id = id
	}
}

func WithRole(role *string) Option {
	return func(c *Contact) {
		c.role = role
	}
}

func WithEmail(email *string) Option {
	return func(c *Contact) {
		c.email = email
	}
}

func WithPhone(phone *string) Option {
	return func(c *Contact) {
		c.phone = phone
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(c *Contact) {
		c.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(c *Contact) {
		c.updatedAt = updatedAt
	}
}

func New(entityID uuid.UUID, firstName, lastName string, opts ...Option) *Contact {
	c := &Contact{
		id:        uuid.New(),
		entityID:  entityID,
		firstName: firstName,
		lastName:  lastName,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Contact) ID() uuid.UUID {
	return c.id
}

func (c *Contact) EntityID() uuid.UUID {
	return c.entityID
}

func (c *Contact) FirstName() string {
	return c.firstName
}

func (c *Contact) LastName() string {
	return c.lastName
}

func (c *Contact) Role() *string {
	return c.role
}

func (c *Contact) Email() *string {
	return c.email
}

func (c *Contact) Phone() *string {
	return c.phone
}

func (c *Contact) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Contact) UpdatedAt() time.Time {
	return c.updatedAt
}
