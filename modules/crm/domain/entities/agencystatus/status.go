package agencystatus

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryTodo       Category = "todo"
	CategoryInProgress Category = "in_progress"
	CategoryDone       Category = "done"
)

func (c Category) IsValid() bool {
	return c == CategoryTodo || c == CategoryInProgress || c == CategoryDone
}

// Status is one entry of an agency's configurable interaction-status list.
// Exactly one status per agency is the default; is_terminal is derived from
// the category.
type Status struct {
	id        uuid.UUID
	agencyID  uuid.UUID
	label     string
	category  Category
	sortOrder int
	isDefault bool
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Status)

func WithID(id uuid.UUID) Option {
	return func(s *Status) {
		s.id = id
	}
}

func WithSortOrder(sortOrder int) Option {
	return func(s *Status) {
		s.sortOrder = sortOrder
	}
}

func WithIsDefault(isDefault bool) Option {
	return func(s *Status) {
		s.isDefault = isDefault
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(s *Status) {
		s.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(s *Status) {
		s.updatedAt = updatedAt
	}
}

func New(agencyID uuid.UUID, label string, category Category, opts ...Option) *Status {
	s := &Status{
		id:        uuid.New(),
		agencyID:  agencyID,
		label:     label,
		category:  category,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Status) ID() uuid.UUID {
	return s.id
}

func (s *Status) AgencyID() uuid.UUID {
	return s.agencyID
}

func (s *Status) Label() string {
	return s.label
}

func (s *Status) Category() Category {
	return s.category
}

func (s *Status) SortOrder() int {
	return s.sortOrder
}

func (s *Status) IsDefault() bool {
	return s.isDefault
}

func (s *Status) IsTerminal() bool {
	return s.category == CategoryDone
}

func (s *Status) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Status) UpdatedAt() time.Time {
	return s.updatedAt
}
