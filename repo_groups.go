package accounts

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Groups interface {
	repository.Repository[*Group]

	Create(ctx context.Context, record *Group, criteria ...repository.InsertCriteria) (*Group, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Group, criteria ...repository.InsertCriteria) (*Group, error)
	ByID(ctx context.Context, id uuid.UUID) (*Group, error)
	ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Group, error)
}

type groups struct {
	repository.Repository[*Group]
	db         *bun.DB
	namespaces Namespaces
}

var (
	_ Groups                        = (*groups)(nil)
	_ repository.Repository[*Group] = (*groups)(nil)
)

func NewGroupsRepository(db *bun.DB, ns Namespaces) Groups {
	repo := repository.NewRepository[*Group](db, repository.ModelHandlers[*Group]{
		NewRecord: func() *Group { return &Group{} },
		GetID: func(g *Group) uuid.UUID {
			if g == nil {
				return uuid.Nil
			}
			return g.ID
		},
		SetID: func(g *Group, id uuid.UUID) {
			if g != nil {
				g.ID = id
			}
		},
		GetIdentifier: func() string {
			return "path"
		},
	})

	return &groups{
		Repository: repo,
		db:         db,
		namespaces: ns,
	}
}

// Create runs both inserts in one transaction; a path collision on the
// namespace leaves no group row behind.
func (g *groups) Create(ctx context.Context, record *Group, criteria ...repository.InsertCriteria) (*Group, error) {
	var created *Group
	err := g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		created, txErr = g.CreateTx(ctx, tx, record, criteria...)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTx inserts the group together with its namespace so the group's
// path joins the global path space atomically. The caller owns the
// transaction boundary.
func (g *groups) CreateTx(ctx context.Context, tx bun.IDB, record *Group, criteria ...repository.InsertCriteria) (*Group, error) {
	if record == nil {
		return nil, ErrNoEmptyString
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := g.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, TranslateConstraintViolation(err)
	}

	groupID := created.ID
	ns := &Namespace{
		ID:      uuid.New(),
		Path:    created.Path,
		Name:    created.Name,
		Kind:    NamespaceGroup,
		GroupID: &groupID,
	}

	if _, err := tx.NewInsert().Model(ns).Exec(ctx); err != nil {
		return nil, TranslateConstraintViolation(err)
	}

	return created, nil
}

func (g *groups) ByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	return g.ByIDTx(ctx, g.db, id)
}

func (g *groups) ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Group, error) {
	record := &Group{}
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
