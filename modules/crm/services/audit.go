package services

import (
	"github.com/sirupsen/logrus"

	"github.com/agenceo/agenceo/pkg/eventbus"
)

// RegisterAuditSubscribers attaches one handler per mutation event so every
// committed write leaves a structured audit record. Handlers only log, so
// they stay safe to run inline on the publishing request.
func RegisterAuditSubscribers(bus eventbus.EventBus, logger *logrus.Logger) {
	audit := func(event string, fields logrus.Fields) {
		logger.WithFields(fields).WithField("event", event).Info("audit")
	}

	bus.Subscribe(func(e EntitySavedEvent) {
		audit("entity_saved", logrus.Fields{
			"entity_id": e.EntityID,
			"agency_id": e.AgencyID,
			"created":   e.Created,
		})
	})
	bus.Subscribe(func(e EntityArchivedEvent) {
		audit("entity_archived", logrus.Fields{
			"entity_id": e.EntityID,
			"archived":  e.Archived,
		})
	})
	bus.Subscribe(func(e EntityConvertedEvent) {
		audit("entity_converted", logrus.Fields{"entity_id": e.EntityID})
	})
	bus.Subscribe(func(e EntityReassignedEvent) {
		audit("entity_reassigned", logrus.Fields{
			"entity_id":               e.EntityID,
			"agency_id":               e.AgencyID,
			"propagated_interactions": e.PropagatedInteractions,
		})
	})
	bus.Subscribe(func(e ContactSavedEvent) {
		audit("contact_saved", logrus.Fields{
			"contact_id": e.ContactID,
			"entity_id":  e.EntityID,
			"created":    e.Created,
		})
	})
	bus.Subscribe(func(e ContactDeletedEvent) {
		audit("contact_deleted", logrus.Fields{"contact_id": e.ContactID})
	})
	bus.Subscribe(func(e InteractionSavedEvent) {
		audit("interaction_saved", logrus.Fields{"interaction_id": e.InteractionID})
	})
	bus.Subscribe(func(e TimelineEventAddedEvent) {
		audit("timeline_event_added", logrus.Fields{"interaction_id": e.InteractionID})
	})
	bus.Subscribe(func(e ConfigSyncedEvent) {
		audit("config_synced", logrus.Fields{
			"agency_id": e.AgencyID,
			"kind":      e.Kind,
		})
	})
	bus.Subscribe(func(e AgencyCreatedEvent) {
		audit("agency_created", logrus.Fields{"agency_id": e.AgencyID})
	})
	bus.Subscribe(func(e AgencyMemberAddedEvent) {
		audit("agency_member_added", logrus.Fields{
			"agency_id": e.AgencyID,
			"user_id":   e.UserID,
		})
	})
	bus.Subscribe(func(e UserDeletedEvent) {
		audit("user_deleted", logrus.Fields{
			"user_id":                 e.UserID,
			"anonymized_interactions": e.AnonymizedInteractions,
		})
	})
}
