package interaction

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventCreation       EventKind = "creation"
	EventNote           EventKind = "note"
	EventStatusChange   EventKind = "status_change"
	EventReminderChange EventKind = "reminder_change"
	EventOrderRefChange EventKind = "order_ref_change"
	EventFile           EventKind = "file"
)

// Event is one element of an interaction's append-only timeline. Ordering is
// insertion order; events are never reordered or merged.
type Event struct {
	Kind     EventKind      `json:"kind"`
	At       time.Time      `json:"at"`
	AuthorID uuid.UUID      `json:"author_id"`
	Data     map[string]any `json:"data,omitempty"`
}

// Interaction records one customer/prospect touchpoint. updated_at doubles as
// the optimistic-concurrency version token: timeline updates only commit when
// the caller presents the value it last observed.
type Interaction struct {
	id               uuid.UUID
	agencyID         *uuid.UUID
	entityID         *uuid.UUID
	contactID        *uuid.UUID
	statusID         *uuid.UUID
	status           *string
	orderRef         *string
	reminderAt       *time.Time
	notes            *string
	lastActionAt     *time.Time
	statusIsTerminal bool
	megaFamilies     []string
	timeline         []Event
	createdBy        uuid.UUID
	createdAt        time.Time
	updatedAt        time.Time
}

type Option func(*Interaction)

func WithID(id uuid.UUID) Option {
	return func(i *Interaction) {
		i.id = id
	}
}

func WithAgencyID(agencyID *uuid.UUID) Option {
	return func(i *Interaction) {
		i.agencyID = agencyID
	}
}

func WithEntityID(entityID *uuid.UUID) Option {
	return func(i *Interaction) {
		i.entityID = entityID
	}
}

func WithContactID(contactID *uuid.UUID) Option {
	return func(i *Interaction) {
		i.contactID = contactID
	}
}

func WithStatusID(statusID *uuid.UUID) Option {
	return func(i *Interaction) {
		i.statusID = statusID
	}
}

func WithStatus(status *string) Option {
	return func(i *Interaction) {
		i.status = status
	}
}

func WithOrderRef(orderRef *string) Option {
	return func(i *Interaction) {
		i.orderRef = orderRef
	}
}

func WithReminderAt(reminderAt *time.Time) Option {
	return func(i *Interaction) {
		i.reminderAt = reminderAt
	}
}

func WithNotes(notes *string) Option {
	return func(i *Interaction) {
		i.notes = notes
	}
}

func WithLastActionAt(lastActionAt *time.Time) Option {
	return func(i *Interaction) {
		i.lastActionAt = lastActionAt
	}
}

func WithStatusIsTerminal(terminal bool) Option {
	return func(i *Interaction) {
		i.statusIsTerminal = terminal
	}
}

func WithMegaFamilies(families []string) Option {
	return func(i *Interaction) {
		i.megaFamilies = families
	}
}

func WithTimeline(timeline []Event) Option {
	return func(i *Interaction) {
		i.timeline = timeline
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(i *Interaction) {
		i.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(i *Interaction) {
		i.updatedAt = updatedAt
	}
}

func New(createdBy uuid.UUID, opts ...Option) *Interaction {
	now := time.Now()
	i := &Interaction{
		id:        uuid.New(),
		createdBy: createdBy,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interaction) ID() uuid.UUID {
	return i.id
}

func (i *Interaction) AgencyID() *uuid.UUID {
	return i.agencyID
}

func (i *Interaction) IsOrphan() bool {
	return i.agencyID == nil
}

func (i *Interaction) EntityID() *uuid.UUID {
	return i.entityID
}

func (i *Interaction) ContactID() *uuid.UUID {
	return i.contactID
}

func (i *Interaction) StatusID() *uuid.UUID {
	return i.statusID
}

func (i *Interaction) Status() *string {
	return i.status
}

func (i *Interaction) OrderRef() *string {
	return i.orderRef
}

func (i *Interaction) ReminderAt() *time.Time {
	return i.reminderAt
}

func (i *Interaction) Notes() *string {
	return i.notes
}

func (i *Interaction) LastActionAt() *time.Time {
	return i.lastActionAt
}

func (i *Interaction) StatusIsTerminal() bool {
	return i.statusIsTerminal
}

func (i *Interaction) MegaFamilies() []string {
	return i.megaFamilies
}

func (i *Interaction) Timeline() []Event {
	return i.timeline
}

func (i *Interaction) CreatedBy() uuid.UUID {
	return i.createdBy
}

func (i *Interaction) CreatedAt() time.Time {
	return i.createdAt
}

func (i *Interaction) UpdatedAt() time.Time {
	return i.updatedAt
}
