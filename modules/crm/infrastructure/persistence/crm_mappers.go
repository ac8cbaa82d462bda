package persistence

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencylabel"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencystatus"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/persistence/models"
)

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func uuidPtr(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ToDomainAgency(row *models.Agency) (*agency.Agency, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid agency id")
	}
	return agency.New(
		row.Name,
		agency.WithID(id),
		agency.WithArchivedAt(timePtr(row.ArchivedAt)),
		agency.WithCreatedAt(row.CreatedAt),
		agency.WithUpdatedAt(row.UpdatedAt),
	), nil
}

func ToDomainEntity(row *models.Entity) (*entity.Entity, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid entity id")
	}
	agencyID, err := uuidPtr(row.AgencyID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid entity agency id")
	}
	return entity.New(
		row.Name,
		entity.Type(row.EntityType),
		entity.WithID(id),
		entity.WithAgencyID(agencyID),
		entity.WithAddress(stringPtr(row.Address)),
		entity.WithSiret(stringPtr(row.Siret)),
		entity.WithClientNumber(stringPtr(row.ClientNumber)),
		entity.WithAccountType(stringPtr(row.AccountType)),
		entity.WithArchivedAt(timePtr(row.ArchivedAt)),
		entity.WithCreatedAt(row.CreatedAt),
		entity.WithUpdatedAt(row.UpdatedAt),
	), nil
}

func ToDBEntity(data *entity.Entity) *models.Entity {
	return &models.Entity{
		ID:           data.ID().String(),
		AgencyID:     nullUUID(data.AgencyID()),
		EntityType:   string(data.Type()),
		Name:         data.Name(),
		Address:      nullString(data.Address()),
		Siret:        nullString(data.Siret()),
		ClientNumber: nullString(data.ClientNumber()),
		AccountType:  nullString(data.AccountType()),
		ArchivedAt:   nullTime(data.ArchivedAt()),
		CreatedAt:    data.CreatedAt(),
		UpdatedAt:    data.UpdatedAt(),
	}
}

func ToDomainContact(row *models.Contact) (*contact.Contact, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid contact id")
	}
	entityID, err := uuid.Parse(row.EntityID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid contact entity id")
	}
	return contact.New(
		entityID,
		row.FirstName,
		row.LastName,
		contact.WithID(id),
		contact.WithRole(stringPtr(row.Role)),
		contact.WithEmail(stringPtr(row.Email)),
		contact.WithPhone(stringPtr(row.Phone)),
		contact.WithCreatedAt(row.CreatedAt),
		contact.WithUpdatedAt(row.UpdatedAt),
	), nil
}

func ToDBContact(data *contact.Contact) *models.Contact {
	return &models.Contact{
		ID:        data.ID().String(),
		EntityID:  data.EntityID().String(),
		FirstName: data.FirstName(),
		LastName:  data.LastName(),
		Role:      nullString(data.Role()),
		Email:     nullString(data.Email()),
		Phone:     nullString(data.Phone()),
		CreatedAt: data.CreatedAt(),
		UpdatedAt: data.UpdatedAt(),
	}
}

func ToDomainInteraction(row *models.Interaction) (*interaction.Interaction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction id")
	}
	createdBy, err := uuid.Parse(row.CreatedBy)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction created_by")
	}
	agencyID, err := uuidPtr(row.AgencyID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction agency id")
	}
	entityID, err := uuidPtr(row.EntityID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction entity id")
	}
	contactID, err := uuidPtr(row.ContactID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction contact id")
	}
	statusID, err := uuidPtr(row.StatusID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid interaction status id")
	}

	var timeline []interaction.Event
	if len(row.Timeline) > 0 {
		if err := json.Unmarshal(row.Timeline, &timeline); err != nil {
			return nil, errors.Wrap(err, "invalid interaction timeline")
		}
	}

	return interaction.New(
		createdBy,
		interaction.WithID(id),
		interaction.WithAgencyID(agencyID),
		interaction.WithEntityID(entityID),
		interaction.WithContactID(contactID),
		interaction.WithStatusID(statusID),
		interaction.WithStatus(stringPtr(row.Status)),
		interaction.WithOrderRef(stringPtr(row.OrderRef)),
		interaction.WithReminderAt(timePtr(row.ReminderAt)),
		interaction.WithNotes(stringPtr(row.Notes)),
		interaction.WithLastActionAt(timePtr(row.LastActionAt)),
		interaction.WithStatusIsTerminal(row.StatusIsTerminal),
		interaction.WithMegaFamilies(row.MegaFamilies),
		interaction.WithTimeline(timeline),
		interaction.WithCreatedAt(row.CreatedAt),
		interaction.WithUpdatedAt(row.UpdatedAt),
	), nil
}

func ToDBInteraction(data *interaction.Interaction) (*models.Interaction, error) {
	timeline, err := json.Marshal(data.Timeline())
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode timeline")
	}
	return &models.Interaction{
		ID:               data.ID().String(),
		AgencyID:         nullUUID(data.AgencyID()),
		EntityID:         nullUUID(data.EntityID()),
		ContactID:        nullUUID(data.ContactID()),
		StatusID:         nullUUID(data.StatusID()),
		Status:           nullString(data.Status()),
		OrderRef:         nullString(data.OrderRef()),
		ReminderAt:       nullTime(data.ReminderAt()),
		Notes:            nullString(data.Notes()),
		LastActionAt:     nullTime(data.LastActionAt()),
		StatusIsTerminal: data.StatusIsTerminal(),
		MegaFamilies:     data.MegaFamilies(),
		Timeline:         timeline,
		CreatedBy:        data.CreatedBy().String(),
		CreatedAt:        data.CreatedAt(),
		UpdatedAt:        data.UpdatedAt(),
	}, nil
}

func ToDomainStatus(row *models.AgencyStatus) (*agencystatus.Status, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid status id")
	}
	agencyID, err := uuid.Parse(row.AgencyID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid status agency id")
	}
	return agencystatus.New(
		agencyID,
		row.Label,
		agencystatus.Category(row.Category),
		agencystatus.WithID(id),
		agencystatus.WithSortOrder(row.SortOrder),
		agencystatus.WithIsDefault(row.IsDefault),
		agencystatus.WithCreatedAt(row.CreatedAt),
		agencystatus.WithUpdatedAt(row.UpdatedAt),
	), nil
}

func ToDomainLabel(row *models.AgencyLabel) (agencylabel.Label, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return agencylabel.Label{}, errors.Wrap(err, "invalid label id")
	}
	agencyID, err := uuid.Parse(row.AgencyID)
	if err != nil {
		return agencylabel.Label{}, errors.Wrap(err, "invalid label agency id")
	}
	return agencylabel.Label{
		ID:        id,
		AgencyID:  agencyID,
		Kind:      agencylabel.Kind(row.Kind),
		Label:     row.Label,
		SortOrder: row.SortOrder,
	}, nil
}

func ToDomainProfile(row *models.Profile) (*profile.Profile, error) {
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid profile user id")
	}
	return profile.New(
		userID,
		row.Email,
		profile.WithDisplayName(row.DisplayName.String),
		profile.WithMustChangePassword(row.MustChangePassword),
		profile.WithIsSuperAdmin(row.IsSuperAdmin),
		profile.WithIsSystem(row.IsSystem),
		profile.WithBannedAt(timePtr(row.BannedAt)),
		profile.WithCreatedAt(row.CreatedAt),
	), nil
}
