package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle state of an account
type AccountStatus = string

const (
	// AccountStatusActive is the initial, fully operational state
	AccountStatusActive AccountStatus = "active"
	// AccountStatusBlocked marks an account an admin has locked out
	AccountStatusBlocked AccountStatus = "blocked"
)

// AccessLevel ranks membership grants from Guest up to Owner
type AccessLevel int

const (
	AccessGuest     AccessLevel = 10
	AccessReporter  AccessLevel = 20
	AccessDeveloper AccessLevel = 30
	AccessMaster    AccessLevel = 40
	AccessOwner     AccessLevel = 50
)

// IsValid checks if the level is one of the predefined grant levels
func (l AccessLevel) IsValid() bool {
	switch l {
	case AccessGuest, AccessReporter, AccessDeveloper, AccessMaster, AccessOwner:
		return true
	default:
		return false
	}
}

// AtLeast reports whether the level meets the given minimum
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l >= min
}

// Account is the central identity model
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              string        `bun:"name,notnull" json:"name,omitempty"`
	Username          string        `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string        `bun:"email,notnull,unique" json:"email,omitempty"`
	NotificationEmail string        `bun:"notification_email" json:"notification_email,omitempty"`
	Status            AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	IsAdmin           bool          `bun:"is_admin" json:"is_admin,omitempty"`
	CanCreateGroup    bool          `bun:"can_create_group" json:"can_create_group,omitempty"`
	CanCreateTeam     bool          `bun:"can_create_team" json:"can_create_team,omitempty"`
	ProjectsLimit     int           `bun:"projects_limit" json:"projects_limit"`
	ThemeID           int           `bun:"theme_id" json:"theme_id,omitempty"`
	AvatarURL         string        `bun:"avatar_url" json:"avatar_url,omitempty"`
	PasswordHash      string        `bun:"password_hash" json:"password_hash,omitempty"`
	BlockedAt         *time.Time    `bun:"blocked_at,nullzero" json:"blocked_at,omitempty"`
	CreatedAt         *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults the lifecycle state for records that predate
// the status column.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// IsActive reports whether the account is in the active state
func (a *Account) IsActive() bool {
	a.EnsureStatus()
	return a.Status == AccountStatusActive
}

// IsBlocked reports whether the account is in the blocked state
func (a *Account) IsBlocked() bool {
	return a.Status == AccountStatusBlocked
}

// Email is a secondary verified address owned by an account
type Email struct {
	bun.BaseModel `bun:"table:emails,alias:eml"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NamespaceKind discriminates personal namespaces from group namespaces
type NamespaceKind = string

const (
	NamespacePersonal NamespaceKind = "personal"
	NamespaceGroup    NamespaceKind = "group"
)

// Namespace is a project container. A personal namespace tracks its
// owner's username; a group namespace belongs to a Group.
type Namespace struct {
	bun.BaseModel `bun:"table:namespaces,alias:ns"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Path          string        `bun:"path,notnull,unique" json:"path,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Kind          NamespaceKind `bun:"kind,notnull" json:"kind,omitempty"`
	OwnerID       *uuid.UUID    `bun:"owner_id,nullzero,type:uuid" json:"owner_id,omitempty"`
	GroupID       *uuid.UUID    `bun:"group_id,nullzero,type:uuid" json:"group_id,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsPersonal reports whether the namespace is an account's personal container
func (n *Namespace) IsPersonal() bool {
	return n.Kind == NamespacePersonal
}

// IsGroup reports whether the namespace belongs to a group
func (n *Namespace) IsGroup() bool {
	return n.Kind == NamespaceGroup
}

// Group owns projects through its namespace and grants access to them
// via group memberships.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:grp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Path          string     `bun:"path,notnull,unique" json:"path,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Project belongs to exactly one namespace, personal or group
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Path          string     `bun:"path,notnull" json:"path,omitempty"`
	NamespaceID   uuid.UUID  `bun:"namespace_id,notnull,type:uuid" json:"namespace_id,omitempty"`
	CreatorID     *uuid.UUID `bun:"creator_id,nullzero,type:uuid" json:"creator_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// MembershipSource discriminates group grants from direct project grants
type MembershipSource = string

const (
	MembershipGroup   MembershipSource = "group"
	MembershipProject MembershipSource = "project"
)

// Membership links an account to a group or directly to a project,
// carrying the access level for that grant.
type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:mbr"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID        `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	SourceType    MembershipSource `bun:"source_type,notnull" json:"source_type,omitempty"`
	SourceID      uuid.UUID        `bun:"source_id,notnull,type:uuid" json:"source_id,omitempty"`
	AccessLevel   AccessLevel      `bun:"access_level,notnull" json:"access_level,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
