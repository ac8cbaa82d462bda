package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	interactionScope = "data_interactions"

	InteractionActionSave             = "save"
	InteractionActionAddTimelineEvent = "add_timeline_event"
)

type InteractionRequest struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	ID        string `json:"id"`
	AgencyID  string `json:"agency_id"`

	// save fields: the full row as submitted by the form.
	EntityID         *string             `json:"entity_id"`
	ContactID        *string             `json:"contact_id"`
	StatusID         *string             `json:"status_id"`
	Status           *string             `json:"status"`
	OrderRef         *string             `json:"order_ref"`
	ReminderAt       *time.Time          `json:"reminder_at"`
	Notes            *string             `json:"notes"`
	LastActionAt     *time.Time          `json:"last_action_at"`
	StatusIsTerminal bool                `json:"status_is_terminal"`
	MegaFamilies     []string            `json:"mega_families"`
	Timeline         []interaction.Event `json:"timeline"`

	// add_timeline_event fields.
	ExpectedUpdatedAt *time.Time         `json:"expected_updated_at"`
	Event             *interaction.Event `json:"event"`
	Updates           map[string]any     `json:"updates"`
}

type InteractionResult struct {
	RequestID     string    `json:"request_id"`
	OK            bool      `json:"ok"`
	InteractionID string    `json:"interaction_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type InteractionService struct {
	interactions interaction.Repository
	guard        *AccessGuard
	limiter      ratelimit.Checker
	publisher    eventbus.EventBus
}

func NewInteractionService(
	interactions interaction.Repository,
	guard *AccessGuard,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		guard:        guard,
		limiter:      limiter,
		publisher:    publisher,
	}
}

func (s *InteractionService) HandleAction(ctx context.Context, req InteractionRequest) (*InteractionResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, interactionScope+":"+req.Action, caller.UserID.String()); err != nil {
		return nil, err
	}

	switch req.Action {
	case InteractionActionSave:
		return s.save(ctx, caller, req)
	case InteractionActionAddTimelineEvent:
		return s.addTimelineEvent(ctx, caller, req)
	default:
		return nil, serrors.ActionRequired()
	}
}

// save is the authoritative single-writer path used right after a form
// submission: creation and full-row replace share one upsert, with no version
// check. Concurrent edits go through addTimelineEvent instead.
func (s *InteractionService) save(ctx context.Context, caller composables.Caller, req InteractionRequest) (*InteractionResult, error) {
	agencyID, err := s.guard.EnsureOptionalAgencyAccess(caller, req.AgencyID)
	if err != nil {
		return nil, err
	}

	entityID, err := parseOptionalUUID(req.EntityID)
	if err != nil {
		return nil, serrors.InvalidPayload("invalid entity id")
	}
	contactID, err := parseOptionalUUID(req.ContactID)
	if err != nil {
		return nil, serrors.InvalidPayload("invalid contact id")
	}
	statusID, err := parseOptionalUUID(req.StatusID)
	if err != nil {
		return nil, serrors.InvalidPayload("invalid status id")
	}

	opts := []interaction.Option{
		interaction.WithAgencyID(agencyID),
		interaction.WithEntityID(entityID),
		interaction.WithContactID(contactID),
		interaction.WithStatusID(statusID),
		interaction.WithStatus(normalizeOptional(req.Status)),
		interaction.WithOrderRef(normalizeOptional(req.OrderRef)),
		interaction.WithReminderAt(req.ReminderAt),
		interaction.WithNotes(req.Notes),
		interaction.WithLastActionAt(req.LastActionAt),
		interaction.WithStatusIsTerminal(req.StatusIsTerminal),
		interaction.WithMegaFamilies(req.MegaFamilies),
	}
	if strings.TrimSpace(req.ID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(req.ID))
		if err != nil {
			return nil, serrors.InvalidPayload("invalid interaction id")
		}
		opts = append(opts, interaction.WithID(id))
	}

	timeline := req.Timeline
	if len(timeline) == 0 {
		timeline = []interaction.Event{{
			Kind:     interaction.EventCreation,
			At:       time.Now().UTC(),
			AuthorID: caller.UserID,
		}}
	}
	opts = append(opts, interaction.WithTimeline(timeline))

	data := interaction.New(caller.UserID, opts...)
	if err := s.interactions.Upsert(ctx, data); err != nil {
		return nil, serrors.DBWriteFailed("failed to save interaction")
	}

	s.publisher.Publish(InteractionSavedEvent{InteractionID: data.ID()})
	return &InteractionResult{
		RequestID:     req.RequestID,
		OK:            true,
		InteractionID: data.ID().String(),
		UpdatedAt:     data.UpdatedAt(),
	}, nil
}

// addTimelineEvent is the concurrent-edit path. The caller presents the
// version token it last observed; the store enforces the check atomically in
// the statement that performs the write, so no blind overwrite of a
// concurrently edited interaction is possible.
func (s *InteractionService) addTimelineEvent(ctx context.Context, caller composables.Caller, req InteractionRequest) (*InteractionResult, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, serrors.InvalidPayload("invalid interaction id")
	}
	if req.Event == nil {
		return nil, serrors.InvalidPayload("event is required")
	}
	if req.ExpectedUpdatedAt == nil {
		return nil, serrors.InvalidPayload("expected_updated_at is required")
	}

	current, err := s.interactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interaction.ErrNotFound) {
			return nil, serrors.NotFound("interaction not found")
		}
		return nil, serrors.DBReadFailed(err)
	}
	if err := s.guard.EnsureCurrentAgencyAccess(caller, current.AgencyID()); err != nil {
		return nil, err
	}

	event := *req.Event
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	event.AuthorID = caller.UserID

	// Append-only: event ordering is insertion order, never reordered.
	timeline := append(append([]interaction.Event{}, current.Timeline()...), event)
	patch := interaction.BuildPatch(req.Updates)

	newVersion, committed, err := s.interactions.UpdateWithVersion(ctx, id, *req.ExpectedUpdatedAt, timeline, patch)
	if err != nil {
		return nil, serrors.DBWriteFailed("failed to update interaction timeline")
	}
	if !committed {
		return nil, serrors.Conflict("record was modified by someone else, reload")
	}

	s.publisher.Publish(TimelineEventAddedEvent{InteractionID: id})
	return &InteractionResult{
		RequestID:     req.RequestID,
		OK:            true,
		InteractionID: id.String(),
		UpdatedAt:     newVersion,
	}, nil
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &id, nil
}
