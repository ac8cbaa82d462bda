package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("profile not found")

// Profile is the application-side row mirroring an authentication identity.
// It is created by the auth provider when the identity materializes, which is
// why provisioning code polls for it instead of inserting it directly.
type Profile struct {
	userID             uuid.UUID
	email              string
	displayName        string
	mustChangePassword bool
	isSuperAdmin       bool
	isSystem           bool
	bannedAt           *time.Time
	createdAt          time.Time
}

type Option func(*Profile)

func WithDisplayName(displayName string) Option {
	return func(p *Profile) {
		p.displayName = displayName
	}
}

func WithMustChangePassword(must bool) Option {
	return func(p *Profile) {
		p.mustChangePassword = must
	}
}

func WithIsSuperAdmin(isSuperAdmin bool) Option {
	return func(p *Profile) {
		p.isSuperAdmin = isSuperAdmin
	}
}

func WithIsSystem(isSystem bool) Option {
	return func(p *Profile) {
		p.isSystem = isSystem
	}
}

func WithBannedAt(bannedAt *time.Time) Option {
	return func(p *Profile) {
		p.bannedAt = bannedAt
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(p *Profile) {
		p.createdAt = createdAt
	}
}

func New(userID uuid.UUID, email string, opts ...Option) *Profile {
	p := &Profile{
		userID:    userID,
		email:     email,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Profile) UserID() uuid.UUID {
	return p.userID
}

func (p *Profile) Email() string {
	return p.email
}

func (p *Profile) DisplayName() string {
	return p.displayName
}

func (p *Profile) MustChangePassword() bool {
	return p.mustChangePassword
}

func (p *Profile) IsSuperAdmin() bool {
	return p.isSuperAdmin
}

func (p *Profile) IsSystem() bool {
	return p.isSystem
}

func (p *Profile) BannedAt() *time.Time {
	return p.bannedAt
}

func (p *Profile) CreatedAt() time.Time {
	return p.createdAt
}

type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// ClearMustChangePassword resets the caller's own flag after a completed
	// password change.
	ClearMustChangePassword(ctx context.Context, userID uuid.UUID) error

	// MarkSystem flags a freshly provisioned identity as a login-banned system
	// user. Idempotent.
	MarkSystem(ctx context.Context, userID uuid.UUID) error
}
