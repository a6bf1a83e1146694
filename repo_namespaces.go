package accounts

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Namespaces interface {
	repository.Repository[*Namespace]

	ByID(ctx context.Context, id uuid.UUID) (*Namespace, error)
	ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Namespace, error)
	FindByPath(ctx context.Context, path string) (*Namespace, error)
	FindByPathTx(ctx context.Context, tx bun.IDB, path string) (*Namespace, error)
	PathTaken(ctx context.Context, path string, excludingOwner uuid.UUID) (bool, error)
	PathTakenTx(ctx context.Context, tx bun.IDB, path string, excludingOwner uuid.UUID) (bool, error)

	PersonalFor(ctx context.Context, accountID uuid.UUID) (*Namespace, error)
	PersonalForTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Namespace, error)
	GroupFor(ctx context.Context, groupID uuid.UUID) (*Namespace, error)
	GroupForTx(ctx context.Context, tx bun.IDB, groupID uuid.UUID) (*Namespace, error)

	EnsureForAccountTx(ctx context.Context, tx bun.IDB, account *Account) (*Namespace, error)
	RenameForAccountTx(ctx context.Context, tx bun.IDB, account *Account) error
	DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

type namespaces struct {
	repository.Repository[*Namespace]
	db *bun.DB
}

var (
	_ Namespaces                        = (*namespaces)(nil)
	_ repository.Repository[*Namespace] = (*namespaces)(nil)
)

func NewNamespacesRepository(db *bun.DB) Namespaces {
	repo := repository.NewRepository[*Namespace](db, repository.ModelHandlers[*Namespace]{
		NewRecord: func() *Namespace { return &Namespace{} },
		GetID: func(n *Namespace) uuid.UUID {
			if n == nil {
				return uuid.Nil
			}
			return n.ID
		},
		SetID: func(n *Namespace, id uuid.UUID) {
			if n != nil {
				n.ID = id
			}
		},
		GetIdentifier: func() string {
			return "path"
		},
	})

	return &namespaces{
		Repository: repo,
		db:         db,
	}
}

func (n *namespaces) ByID(ctx context.Context, id uuid.UUID) (*Namespace, error) {
	return n.ByIDTx(ctx, n.db, id)
}

func (n *namespaces) ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Namespace, error) {
	record := &Namespace{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (n *namespaces) FindByPath(ctx context.Context, path string) (*Namespace, error) {
	return n.FindByPathTx(ctx, n.db, path)
}

func (n *namespaces) FindByPathTx(ctx context.Context, tx bun.IDB, path string) (*Namespace, error) {
	record := &Namespace{}
	err := tx.NewSelect().Model(record).
		Where("lower(?TableAlias.path) = lower(?)", path).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"path": path,
				})
		}
		return nil, err
	}

	return record, nil
}

// PathTaken checks the full namespace path space, personal and group
// alike. The excluding owner lets an account keep its own path on a
// no-op rename.
func (n *namespaces) PathTaken(ctx context.Context, path string, excludingOwner uuid.UUID) (bool, error) {
	return n.PathTakenTx(ctx, n.db, path, excludingOwner)
}

func (n *namespaces) PathTakenTx(ctx context.Context, tx bun.IDB, path string, excludingOwner uuid.UUID) (bool, error) {
	q := tx.NewSelect().Model((*Namespace)(nil)).
		Where("lower(?TableAlias.path) = lower(?)", path)

	if excludingOwner != uuid.Nil {
		q = q.Where("(?TableAlias.owner_id IS NULL OR ?TableAlias.owner_id != ?)", excludingOwner)
	}

	count, err := q.Count(ctx)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (n *namespaces) PersonalFor(ctx context.Context, accountID uuid.UUID) (*Namespace, error) {
	return n.PersonalForTx(ctx, n.db, accountID)
}

func (n *namespaces) PersonalForTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (*Namespace, error) {
	record := &Namespace{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.owner_id = ?", accountID).
		Where("?TableAlias.kind = ?", NamespacePersonal).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"owner_id": accountID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (n *namespaces) GroupFor(ctx context.Context, groupID uuid.UUID) (*Namespace, error) {
	return n.GroupForTx(ctx, n.db, groupID)
}

func (n *namespaces) GroupForTx(ctx context.Context, tx bun.IDB, groupID uuid.UUID) (*Namespace, error) {
	record := &Namespace{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.group_id = ?", groupID).
		Where("?TableAlias.kind = ?", NamespaceGroup).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"group_id": groupID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// EnsureForAccountTx creates the personal namespace on first use and
// repairs its path/name when they have drifted from the username. Every
// fully created account ends up with exactly one.
func (n *namespaces) EnsureForAccountTx(ctx context.Context, tx bun.IDB, account *Account) (*Namespace, error) {
	if account == nil {
		return nil, ErrNoEmptyString
	}

	record, err := n.PersonalForTx(ctx, tx, account.ID)
	if err == nil {
		if record.Path != account.Username || record.Name != account.Username {
			record.Path = account.Username
			record.Name = account.Username
			if _, err := tx.NewUpdate().Model(record).
				Column("path", "name").
				Where("?TableAlias.id = ?", record.ID).
				Exec(ctx); err != nil {
				return nil, TranslateConstraintViolation(err)
			}
		}
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	ownerID := account.ID
	record = &Namespace{
		ID:      uuid.New(),
		Path:    account.Username,
		Name:    account.Username,
		Kind:    NamespacePersonal,
		OwnerID: &ownerID,
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, TranslateConstraintViolation(err)
	}

	return record, nil
}

// RenameForAccountTx moves the personal namespace path and name to the
// account's current username. Runs in the same transaction as the
// username write itself.
func (n *namespaces) RenameForAccountTx(ctx context.Context, tx bun.IDB, account *Account) error {
	if account == nil {
		return ErrNoEmptyString
	}

	res, err := tx.NewUpdate().Model((*Namespace)(nil)).
		Set("path = ?", account.Username).
		Set("name = ?", account.Username).
		Where("?TableAlias.owner_id = ?", account.ID).
		Where("?TableAlias.kind = ?", NamespacePersonal).
		Exec(ctx)

	if err != nil {
		return TranslateConstraintViolation(err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		// lazily created namespaces may not exist yet; nothing to rename
		return nil
	}

	return nil
}

func (n *namespaces) DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Namespace)(nil)).
		Where("?TableAlias.owner_id = ?", accountID).
		Where("?TableAlias.kind = ?", NamespacePersonal).
		Exec(ctx)

	return err
}
