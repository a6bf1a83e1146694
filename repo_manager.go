package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	Emails() Emails
	Namespaces() Namespaces
	Groups() Groups
	Projects() Projects
	Memberships() Memberships
}

type mngr struct {
	db          *bun.DB
	accounts    Accounts
	emails      Emails
	namespaces  Namespaces
	groups      Groups
	projects    Projects
	memberships Memberships
}

// The manager doubles as the backing store for the stateless components:
// the identity registry, the authorization resolver, and the quota
// enforcer all read through it.
var (
	_ IdentityStore  = (*mngr)(nil)
	_ ResolverStore  = (*mngr)(nil)
	_ ProjectCounter = (*mngr)(nil)
)

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	namespaces := NewNamespacesRepository(db)
	return &mngr{
		db:          db,
		accounts:    NewAccountsRepository(db),
		emails:      NewEmailsRepository(db),
		namespaces:  namespaces,
		groups:      NewGroupsRepository(db, namespaces),
		projects:    NewProjectsRepository(db),
		memberships: NewMembershipsRepository(db),
	}
}

func (m *mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.emails == nil {
		return errors.New("repository emails should be initialized")
	}

	if m.namespaces == nil {
		return errors.New("repository namespaces should be initialized")
	}

	if m.groups == nil {
		return errors.New("repository groups should be initialized")
	}

	if m.projects == nil {
		return errors.New("repository projects should be initialized")
	}

	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}

	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *mngr) Accounts() Accounts {
	return m.accounts
}

func (m *mngr) Emails() Emails {
	return m.emails
}

func (m *mngr) Namespaces() Namespaces {
	return m.namespaces
}

func (m *mngr) Groups() Groups {
	return m.groups
}

func (m *mngr) Projects() Projects {
	return m.projects
}

func (m *mngr) Memberships() Memberships {
	return m.memberships
}

// idb resolves the handle a check should run on: the caller's
// transaction when present, the shared db otherwise.
func (m *mngr) idb(tx bun.IDB) bun.IDB {
	if tx != nil {
		return tx
	}
	return m.db
}

// UsernameTaken implements IdentityStore against the accounts table.
func (m *mngr) UsernameTaken(ctx context.Context, tx bun.IDB, username string, excluding uuid.UUID) (bool, error) {
	q := m.idb(tx).NewSelect().Model((*Account)(nil)).
		Where("lower(?TableAlias.username) = lower(?)", username)

	if excluding != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excluding)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// NamespacePathTaken implements IdentityStore across the full path space.
func (m *mngr) NamespacePathTaken(ctx context.Context, tx bun.IDB, path string, excluding uuid.UUID) (bool, error) {
	return m.namespaces.PathTakenTx(ctx, m.idb(tx), path, excluding)
}

// EmailTaken implements IdentityStore against both the primary addresses
// and every secondary email record system-wide.
func (m *mngr) EmailTaken(ctx context.Context, tx bun.IDB, email string, excluding uuid.UUID) (bool, error) {
	q := m.idb(tx).NewSelect().Model((*Account)(nil)).
		Where("lower(?TableAlias.email) = lower(?)", email)

	if excluding != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", excluding)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	sq := m.idb(tx).NewSelect().Model((*Email)(nil)).
		Where("lower(?TableAlias.email) = lower(?)", email)

	if excluding != uuid.Nil {
		sq = sq.Where("?TableAlias.account_id != ?", excluding)
	}

	count, err = sq.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// PersonalNamespace implements ResolverStore.
func (m *mngr) PersonalNamespace(ctx context.Context, accountID uuid.UUID) (*Namespace, error) {
	return m.namespaces.PersonalFor(ctx, accountID)
}

// ProjectsInNamespace implements ResolverStore.
func (m *mngr) ProjectsInNamespace(ctx context.Context, namespaceID uuid.UUID) ([]*Project, error) {
	return m.projects.InNamespace(ctx, namespaceID)
}

// MembershipsBySource implements ResolverStore.
func (m *mngr) MembershipsBySource(ctx context.Context, accountID uuid.UUID, source MembershipSource) ([]*Membership, error) {
	return m.memberships.BySource(ctx, accountID, source)
}

// GroupNamespace implements ResolverStore.
func (m *mngr) GroupNamespace(ctx context.Context, groupID uuid.UUID) (*Namespace, error) {
	return m.namespaces.GroupFor(ctx, groupID)
}

// ProjectByID implements ResolverStore.
func (m *mngr) ProjectByID(ctx context.Context, projectID uuid.UUID) (*Project, error) {
	return m.projects.ByID(ctx, projectID)
}

// NamespaceByID implements ResolverStore.
func (m *mngr) NamespaceByID(ctx context.Context, namespaceID uuid.UUID) (*Namespace, error) {
	return m.namespaces.ByID(ctx, namespaceID)
}

// CountPersonalProjects implements ProjectCounter. Only projects under
// the personal namespace count against the quota.
func (m *mngr) CountPersonalProjects(ctx context.Context, accountID uuid.UUID) (int, error) {
	ns, err := m.namespaces.PersonalFor(ctx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return 0, nil
		}
		return 0, err
	}

	return m.projects.CountInNamespace(ctx, ns.ID)
}
