package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agency"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencylabel"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencystatus"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/contact"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/entity"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/interaction"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/profile"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/systemuser"
	"github.com/agenceo/agenceo/modules/crm/infrastructure/identity"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/configuration"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
)

func testContext(caller composables.Caller) context.Context {
	return composables.WithCaller(context.Background(), caller)
}

func memberCaller(agencyIDs ...uuid.UUID) composables.Caller {
	return composables.Caller{UserID: uuid.New(), AgencyIDs: agencyIDs}
}

func superAdminCaller() composables.Caller {
	return composables.Caller{UserID: uuid.New(), IsSuperAdmin: true}
}

// testLimiter is a generously budgeted memory-store checker so rate limiting
// never interferes with unrelated test cases.
func testLimiter() ratelimit.Checker {
	return ratelimit.New(ratelimit.NewMemoryStore(), configuration.RateLimitOptions{
		Enabled:  true,
		Window:   5 * time.Minute,
		MaxCount: 10000,
	})
}

func testPublisher() eventbus.EventBus {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return eventbus.NewEventPublisher(log)
}

// passthroughTx stands in for composables.InTx where no pool exists.
func passthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// --- entity repository ---

type fakeEntityRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*entity.Entity
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{items: make(map[uuid.UUID]*entity.Entity)}
}

func cloneEntity(e *entity.Entity, opts ...entity.Option) *entity.Entity {
	return cloneEntityAs(e, e.Type(), opts...)
}

func cloneEntityAs(e *entity.Entity, entityType entity.Type, opts ...entity.Option) *entity.Entity {
	base := []entity.Option{
		entity.WithID(e.ID()),
		entity.WithAgencyID(e.AgencyID()),
		entity.WithAddress(e.Address()),
		entity.WithSiret(e.Siret()),
		entity.WithClientNumber(e.ClientNumber()),
		entity.WithAccountType(e.AccountType()),
		entity.WithArchivedAt(e.ArchivedAt()),
		entity.WithCreatedAt(e.CreatedAt()),
		entity.WithUpdatedAt(e.UpdatedAt()),
	}
	return entity.New(e.Name(), entityType, append(base, opts...)...)
}

func (f *fakeEntityRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return e, nil
}

func (f *fakeEntityRepo) Create(_ context.Context, data *entity.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[data.ID()] = data
	return nil
}

func (f *fakeEntityRepo) Update(_ context.Context, data *entity.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.items[data.ID()]
	if !ok {
		return entity.ErrNoRowsAffected
	}
	// archived_at is not part of the update statement.
	f.items[data.ID()] = cloneEntity(data, entity.WithArchivedAt(existing.ArchivedAt()))
	return nil
}

func (f *fakeEntityRepo) SetArchived(_ context.Context, id uuid.UUID, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok {
		return entity.ErrNoRowsAffected
	}
	var archivedAt *time.Time
	if archived {
		now := time.Now()
		archivedAt = &now
	}
	f.items[id] = cloneEntity(e, entity.WithArchivedAt(archivedAt))
	return nil
}

func (f *fakeEntityRepo) ConvertToClient(_ context.Context, id uuid.UUID, clientNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok || e.Type() == entity.TypeClient {
		return false, nil
	}
	f.items[id] = cloneEntityAs(e, entity.TypeClient, entity.WithClientNumber(&clientNumber))
	return true, nil
}

func (f *fakeEntityRepo) AssignAgency(_ context.Context, id uuid.UUID, agencyID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.items[id]
	if !ok || e.AgencyID() != nil {
		return false, nil
	}
	f.items[id] = cloneEntity(e, entity.WithAgencyID(&agencyID))
	return true, nil
}

// --- agency repository ---

type fakeAgencyRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*agency.Agency
	members map[uuid.UUID][]uuid.UUID
}

func newFakeAgencyRepo() *fakeAgencyRepo {
	return &fakeAgencyRepo{
		items:   make(map[uuid.UUID]*agency.Agency),
		members: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeAgencyRepo) GetByID(_ context.Context, id uuid.UUID) (*agency.Agency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, agency.ErrNotFound
	}
	return a, nil
}

func (f *fakeAgencyRepo) Create(_ context.Context, data *agency.Agency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if strings.EqualFold(existing.Name(), data.Name()) {
			return agency.ErrNameTaken
		}
	}
	f.items[data.ID()] = data
	return nil
}

func (f *fakeAgencyRepo) AddMember(_ context.Context, agencyID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.members[agencyID] {
		if existing == userID {
			return nil
		}
	}
	f.members[agencyID] = append(f.members[agencyID], userID)
	return nil
}

func (f *fakeAgencyRepo) AgencyIDsByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for agencyID, users := range f.members {
		for _, u := range users {
			if u == userID {
				out = append(out, agencyID)
			}
		}
	}
	return out, nil
}

// --- contact repository ---

type fakeContactRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*contact.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{items: make(map[uuid.UUID]*contact.Contact)}
}

func (f *fakeContactRepo) GetByID(_ context.Context, id uuid.UUID) (*contact.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[id]
	if !ok {
		return nil, contact.ErrNotFound
	}
	return c, nil
}

func (f *fakeContactRepo) Create(_ context.Context, data *contact.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[data.ID()] = data
	return nil
}

func (f *fakeContactRepo) Update(_ context.Context, data *contact.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[data.ID()]; !ok {
		return contact.ErrNotFound
	}
	f.items[data.ID()] = data
	return nil
}

func (f *fakeContactRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

// --- interaction repository ---

type fakeInteractionRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*interaction.Interaction
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{items: make(map[uuid.UUID]*interaction.Interaction)}
}

func cloneInteraction(i *interaction.Interaction, createdBy uuid.UUID, opts ...interaction.Option) *interaction.Interaction {
	base := []interaction.Option{
		interaction.WithID(i.ID()),
		interaction.WithAgencyID(i.AgencyID()),
		interaction.WithEntityID(i.EntityID()),
		interaction.WithContactID(i.ContactID()),
		interaction.WithStatusID(i.StatusID()),
		interaction.WithStatus(i.Status()),
		interaction.WithOrderRef(i.OrderRef()),
		interaction.WithReminderAt(i.ReminderAt()),
		interaction.WithNotes(i.Notes()),
		interaction.WithLastActionAt(i.LastActionAt()),
		interaction.WithStatusIsTerminal(i.StatusIsTerminal()),
		interaction.WithMegaFamilies(i.MegaFamilies()),
		interaction.WithTimeline(i.Timeline()),
		interaction.WithCreatedAt(i.CreatedAt()),
		interaction.WithUpdatedAt(i.UpdatedAt()),
	}
	return interaction.New(createdBy, append(base, opts...)...)
}

func (f *fakeInteractionRepo) GetByID(_ context.Context, id uuid.UUID) (*interaction.Interaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.items[id]
	if !ok {
		return nil, interaction.ErrNotFound
	}
	return i, nil
}

func (f *fakeInteractionRepo) Upsert(_ context.Context, data *interaction.Interaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[data.ID()] = data
	return nil
}

func (f *fakeInteractionRepo) UpdateWithVersion(
	_ context.Context,
	id uuid.UUID,
	expectedUpdatedAt time.Time,
	timeline []interaction.Event,
	patch interaction.Patch,
) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.items[id]
	if !ok || !current.UpdatedAt().Equal(expectedUpdatedAt) {
		return time.Time{}, false, nil
	}
	newVersion := time.Now().UTC()
	if !newVersion.After(current.UpdatedAt()) {
		newVersion = current.UpdatedAt().Add(time.Microsecond)
	}
	updated := cloneInteraction(current, current.CreatedBy(),
		interaction.WithTimeline(timeline),
		interaction.WithUpdatedAt(newVersion),
	)
	patch.Apply(updated)
	f.items[id] = updated
	return newVersion, true, nil
}

func (f *fakeInteractionRepo) PropagateAgency(_ context.Context, entityID, agencyID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, i := range f.items {
		if i.EntityID() != nil && *i.EntityID() == entityID && i.AgencyID() == nil {
			f.items[id] = cloneInteraction(i, i.CreatedBy(), interaction.WithAgencyID(&agencyID))
			count++
		}
	}
	return count, nil
}

func (f *fakeInteractionRepo) CreatorAgencyIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	hasOrphan := false
	var out []uuid.UUID
	for _, i := range f.items {
		if i.CreatedBy() != userID {
			continue
		}
		if i.AgencyID() == nil {
			hasOrphan = true
			continue
		}
		if _, ok := seen[*i.AgencyID()]; !ok {
			seen[*i.AgencyID()] = struct{}{}
			out = append(out, *i.AgencyID())
		}
	}
	return out, hasOrphan, nil
}

func (f *fakeInteractionRepo) ReassignCreator(_ context.Context, fromUserID, toUserID uuid.UUID, agencyID *uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, i := range f.items {
		if i.CreatedBy() != fromUserID {
			continue
		}
		if agencyID == nil {
			if i.AgencyID() != nil {
				continue
			}
		} else if i.AgencyID() == nil || *i.AgencyID() != *agencyID {
			continue
		}
		f.items[id] = cloneInteraction(i, toUserID)
		count++
	}
	return count, nil
}

// --- label repository ---

type fakeLabelRepo struct {
	mu    sync.Mutex
	items []agencylabel.Label
}

func newFakeLabelRepo() *fakeLabelRepo {
	return &fakeLabelRepo{}
}

func (f *fakeLabelRepo) ListByAgency(_ context.Context, agencyID uuid.UUID, kind agencylabel.Kind) ([]agencylabel.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []agencylabel.Label
	for _, l := range f.items {
		if l.AgencyID == agencyID && l.Kind == kind {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLabelRepo) Upsert(_ context.Context, agencyID uuid.UUID, kind agencylabel.Kind, label string, sortOrder int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for idx, l := range f.items {
		if l.AgencyID == agencyID && l.Kind == kind && strings.EqualFold(l.Label, label) {
			f.items[idx].Label = label
			f.items[idx].SortOrder = sortOrder
			return nil
		}
	}
	f.items = append(f.items, agencylabel.Label{
		ID:        uuid.New(),
		AgencyID:  agencyID,
		Kind:      kind,
		Label:     label,
		SortOrder: sortOrder,
	})
	return nil
}

func (f *fakeLabelRepo) DeleteByLabels(_ context.Context, agencyID uuid.UUID, kind agencylabel.Kind, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, l := range f.items {
		remove := false
		if l.AgencyID == agencyID && l.Kind == kind {
			for _, candidate := range labels {
				if strings.EqualFold(l.Label, candidate) {
					remove = true
					break
				}
			}
		}
		if !remove {
			kept = append(kept, l)
		}
	}
	f.items = kept
	return nil
}

// --- status repository ---

type fakeStatusRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*agencystatus.Status
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{items: make(map[uuid.UUID]*agencystatus.Status)}
}

func (f *fakeStatusRepo) ListByAgency(_ context.Context, agencyID uuid.UUID) ([]*agencystatus.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*agencystatus.Status
	for _, s := range f.items {
		if s.AgencyID() == agencyID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStatusRepo) Upsert(_ context.Context, data *agencystatus.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[data.ID()] = data
	return nil
}

func (f *fakeStatusRepo) DeleteByIDs(_ context.Context, agencyID uuid.UUID, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if s, ok := f.items[id]; ok && s.AgencyID() == agencyID {
			delete(f.items, id)
		}
	}
	return nil
}

// --- system user mapping repository ---

type fakeSystemUserRepo struct {
	mu    sync.Mutex
	items map[string]uuid.UUID
}

func newFakeSystemUserRepo() *fakeSystemUserRepo {
	return &fakeSystemUserRepo{items: make(map[string]uuid.UUID)}
}

func systemUserKey(agencyID *uuid.UUID) string {
	if agencyID == nil {
		return "orphan"
	}
	return agencyID.String()
}

func (f *fakeSystemUserRepo) Get(_ context.Context, agencyID *uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.items[systemUserKey(agencyID)]
	if !ok {
		return uuid.Nil, systemuser.ErrNotFound
	}
	return id, nil
}

func (f *fakeSystemUserRepo) Upsert(_ context.Context, agencyID *uuid.UUID, userID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := systemUserKey(agencyID)
	if existing, ok := f.items[key]; ok {
		return existing, nil
	}
	f.items[key] = userID
	return userID, nil
}

// --- profile repository ---

type fakeProfileRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*profile.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{items: make(map[uuid.UUID]*profile.Profile)}
}

func (f *fakeProfileRepo) put(p *profile.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.UserID()] = p
}

func (f *fakeProfileRepo) remove(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, userID)
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) ClearMustChangePassword(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[userID]
	if !ok {
		return profile.ErrNotFound
	}
	f.items[userID] = profile.New(p.UserID(), p.Email(),
		profile.WithDisplayName(p.DisplayName()),
		profile.WithMustChangePassword(false),
		profile.WithIsSuperAdmin(p.IsSuperAdmin()),
		profile.WithIsSystem(p.IsSystem()),
		profile.WithBannedAt(p.BannedAt()),
		profile.WithCreatedAt(p.CreatedAt()),
	)
	return nil
}

func (f *fakeProfileRepo) MarkSystem(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[userID]
	if !ok {
		return nil
	}
	f.items[userID] = profile.New(p.UserID(), p.Email(),
		profile.WithDisplayName(p.DisplayName()),
		profile.WithMustChangePassword(p.MustChangePassword()),
		profile.WithIsSuperAdmin(p.IsSuperAdmin()),
		profile.WithIsSystem(true),
		profile.WithBannedAt(p.BannedAt()),
		profile.WithCreatedAt(p.CreatedAt()),
	)
	return nil
}

// --- identity admin client ---

// fakeAdminClient emulates the auth provider, including the trigger that
// materializes a profile row right after identity creation.
type fakeAdminClient struct {
	mu       sync.Mutex
	profiles *fakeProfileRepo
	byEmail  map[string]uuid.UUID
	deleted  map[uuid.UUID]bool

	// delayProfileFor suppresses profile materialization for these emails,
	// simulating a slow provider trigger.
	delayProfileFor map[string]bool
}

func newFakeAdminClient(profiles *fakeProfileRepo) *fakeAdminClient {
	return &fakeAdminClient{
		profiles:        profiles,
		byEmail:         make(map[string]uuid.UUID),
		deleted:         make(map[uuid.UUID]bool),
		delayProfileFor: make(map[string]bool),
	}
}

func (f *fakeAdminClient) register(email string, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email] = userID
}

func (f *fakeAdminClient) CreateUser(_ context.Context, params identity.CreateUserParams) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[params.Email]; ok {
		return uuid.Nil, identity.ErrEmailExists
	}
	userID := uuid.New()
	f.byEmail[params.Email] = userID
	if !f.delayProfileFor[params.Email] {
		var bannedAt *time.Time
		if params.Banned {
			now := time.Now()
			bannedAt = &now
		}
		f.profiles.put(profile.New(userID, params.Email, profile.WithBannedAt(bannedAt)))
	}
	return userID, nil
}

func (f *fakeAdminClient) GetUserByEmail(_ context.Context, email string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byEmail[email]
	if !ok {
		return uuid.Nil, identity.ErrIdentityNotFound
	}
	return id, nil
}

func (f *fakeAdminClient) BanUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[userID] {
		return identity.ErrIdentityNotFound
	}
	return nil
}

func (f *fakeAdminClient) DeleteUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[userID] {
		return identity.ErrIdentityNotFound
	}
	f.deleted[userID] = true
	// Provider-side cascade removes the profile row.
	f.profiles.remove(userID)
	return nil
}
