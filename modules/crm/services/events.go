package services

import "github.com/google/uuid"

// Events published on the bus after successful commits. Subscribers handle
// audit logging and notification fan-out.

type EntitySavedEvent struct {
	EntityID uuid.UUID
	AgencyID uuid.UUID
	Created  bool
}

type EntityArchivedEvent struct {
	EntityID uuid.UUID
	Archived bool
}

type EntityConvertedEvent struct {
	EntityID uuid.UUID
}

type EntityReassignedEvent struct {
	EntityID               uuid.UUID
	AgencyID               uuid.UUID
	PropagatedInteractions int64
}

type ContactSavedEvent struct {
	ContactID uuid.UUID
	EntityID  uuid.UUID
	Created   bool
}

type ContactDeletedEvent struct {
	ContactID uuid.UUID
}

type InteractionSavedEvent struct {
	InteractionID uuid.UUID
}

type TimelineEventAddedEvent struct {
	InteractionID uuid.UUID
}

type ConfigSyncedEvent struct {
	AgencyID uuid.UUID
	Kind     string
}

type AgencyCreatedEvent struct {
	AgencyID uuid.UUID
}

type AgencyMemberAddedEvent struct {
	AgencyID uuid.UUID
	UserID   uuid.UUID
}

type UserDeletedEvent struct {
	UserID                 uuid.UUID
	AnonymizedInteractions int64
}
