package interaction

import (
	"time"

	"github.com/google/uuid"
)

// Field names accepted by BuildPatch. Anything outside this whitelist is
// ignored, so a timeline update can never touch id, created_by or timeline
// through the scalar-update side channel.
const (
	FieldStatus           = "status"
	FieldStatusID         = "status_id"
	FieldOrderRef         = "order_ref"
	FieldReminderAt       = "reminder_at"
	FieldNotes            = "notes"
	FieldEntityID         = "entity_id"
	FieldContactID        = "contact_id"
	FieldLastActionAt     = "last_action_at"
	FieldStatusIsTerminal = "status_is_terminal"
	FieldMegaFamilies     = "mega_families"
)

// Patch is the whitelisted set of scalar assignments merged into an
// interaction alongside a timeline append. A field absent from the source map
// is left untouched; an explicit null clears the column; a value of the wrong
// type is dropped without failing the request.
type Patch struct {
	assignments map[string]any
}

// Assignments returns column→value pairs; a nil value clears the column.
func (p Patch) Assignments() map[string]any {
	return p.assignments
}

func (p Patch) IsEmpty() bool {
	return len(p.assignments) == 0
}

// BuildPatch filters raw update values through the field whitelist with
// per-field type checks.
func BuildPatch(updates map[string]any) Patch {
	p := Patch{assignments: make(map[string]any)}
	for field, value := range updates {
		switch field {
		case FieldStatus, FieldOrderRef, FieldNotes:
			p.setString(field, value)
		case FieldStatusID, FieldEntityID, FieldContactID:
			p.setUUID(field, value)
		case FieldReminderAt, FieldLastActionAt:
			p.setTime(field, value)
		case FieldStatusIsTerminal:
			p.setBool(field, value)
		case FieldMegaFamilies:
			p.setStringSlice(field, value)
		}
	}
	return p
}

func (p Patch) setString(field string, value any) {
	if value == nil {
		p.assignments[field] = nil
		return
	}
	if s, ok := value.(string); ok {
		p.assignments[field] = s
	}
}

func (p Patch) setUUID(field string, value any) {
	if value == nil {
		p.assignments[field] = nil
		return
	}
	s, ok := value.(string)
	if !ok {
		return
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return
	}
	p.assignments[field] = id
}

func (p Patch) setTime(field string, value any) {
	if value == nil {
		p.assignments[field] = nil
		return
	}
	switch v := value.(type) {
	case time.Time:
		p.assignments[field] = v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return
		}
		p.assignments[field] = t
	}
}

func (p Patch) setBool(field string, value any) {
	if value == nil {
		p.assignments[field] = nil
		return
	}
	if b, ok := value.(bool); ok {
		p.assignments[field] = b
	}
}

func (p Patch) setStringSlice(field string, value any) {
	if value == nil {
		p.assignments[field] = nil
		return
	}
	switch v := value.(type) {
	case []string:
		p.assignments[field] = v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return
			}
			out = append(out, s)
		}
		p.assignments[field] = out
	}
}

// Apply merges the patch into an in-memory interaction. Persistence builds the
// equivalent SET clause; this keeps fakes and the store behaviorally aligned.
func (p Patch) Apply(i *Interaction) {
	for field, value := range p.assignments {
		switch field {
		case FieldStatus:
			i.status = asStringPtr(value)
		case FieldStatusID:
			i.statusID = asUUIDPtr(value)
		case FieldOrderRef:
			i.orderRef = asStringPtr(value)
		case FieldReminderAt:
			i.reminderAt = asTimePtr(value)
		case FieldNotes:
			i.notes = asStringPtr(value)
		case FieldEntityID:
			i.entityID = asUUIDPtr(value)
		case FieldContactID:
			i.contactID = asUUIDPtr(value)
		case FieldLastActionAt:
			i.lastActionAt = asTimePtr(value)
		case FieldStatusIsTerminal:
			if value == nil {
				i.statusIsTerminal = false
			} else {
				i.statusIsTerminal = value.(bool)
			}
		case FieldMegaFamilies:
			if value == nil {
				i.megaFamilies = nil
			} else {
				i.megaFamilies = value.([]string)
			}
		}
	}
}

func asStringPtr(value any) *string {
	if value == nil {
		return nil
	}
	s := value.(string)
	return &s
}

func asUUIDPtr(value any) *uuid.UUID {
	if value == nil {
		return nil
	}
	id := value.(uuid.UUID)
	return &id
}

func asTimePtr(value any) *time.Time {
	if value == nil {
		return nil
	}
	t := value.(time.Time)
	return &t
}
