package models

import (
	"database/sql"
	"time"
)

type Agency struct {
	ID         string
	Name       string
	ArchivedAt sql.NullTime
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Entity struct {
	ID           string
	AgencyID     sql.NullString
	EntityType   string
	Name         string
	Address      sql.NullString
	Siret        sql.NullString
	ClientNumber sql.NullString
	AccountType  sql.NullString
	ArchivedAt   sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Contact struct {
	ID        string
	EntityID  string
	FirstName string
	LastName  string
	Role      sql.NullString
	Email     sql.NullString
	Phone     sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Interaction struct {
	ID               string
	AgencyID         sql.NullString
	EntityID         sql.NullString
	ContactID        sql.NullString
	StatusID         sql.NullString
	Status           sql.NullString
	OrderRef         sql.NullString
	ReminderAt       sql.NullTime
	Notes            sql.NullString
	LastActionAt     sql.NullTime
	StatusIsTerminal bool
	MegaFamilies     []string
	Timeline         []byte
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AgencyStatus struct {
	ID         string
	AgencyID   string
	Label      string
	Category   string
	SortOrder  int
	IsDefault  bool
	IsTerminal bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AgencyLabel struct {
	ID        string
	AgencyID  string
	Kind      string
	Label     string
	SortOrder int
}

type SystemUserMapping struct {
	AgencyID  sql.NullString
	UserID    string
	CreatedAt time.Time
}

type Profile struct {
	UserID             string
	Email              string
	DisplayName        sql.NullString
	MustChangePassword bool
	IsSuperAdmin       bool
	IsSystem           bool
	BannedAt           sql.NullTime
	CreatedAt          time.Time
}
