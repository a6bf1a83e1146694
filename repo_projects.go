package accounts

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Projects interface {
	repository.Repository[*Project]

	Create(ctx context.Context, record *Project, criteria ...repository.InsertCriteria) (*Project, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Project, criteria ...repository.InsertCriteria) (*Project, error)
	ByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error)
	InNamespace(ctx context.Context, namespaceID uuid.UUID) ([]*Project, error)
	InNamespaceTx(ctx context.Context, tx bun.IDB, namespaceID uuid.UUID) ([]*Project, error)
	CountInNamespace(ctx context.Context, namespaceID uuid.UUID) (int, error)
	DeleteInNamespaceTx(ctx context.Context, tx bun.IDB, namespaceID uuid.UUID) error
}

type projects struct {
	repository.Repository[*Project]
	db *bun.DB
}

var (
	_ Projects                        = (*projects)(nil)
	_ repository.Repository[*Project] = (*projects)(nil)
)

func NewProjectsRepository(db *bun.DB) Projects {
	repo := repository.NewRepository[*Project](db, repository.ModelHandlers[*Project]{
		NewRecord: func() *Project { return &Project{} },
		GetID: func(p *Project) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Project, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "path"
		},
	})

	return &projects{
		Repository: repo,
		db:         db,
	}
}

func (p *projects) Create(ctx context.Context, record *Project, criteria ...repository.InsertCriteria) (*Project, error) {
	return p.CreateTx(ctx, p.db, record, criteria...)
}

func (p *projects) CreateTx(ctx context.Context, tx bun.IDB, record *Project, criteria ...repository.InsertCriteria) (*Project, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := p.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, TranslateConstraintViolation(err)
	}
	return created, nil
}

func (p *projects) ByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	return p.ByIDTx(ctx, p.db, id)
}

func (p *projects) ByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error) {
	record := &Project{}
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

func (p *projects) InNamespace(ctx context.Context, namespaceID uuid.UUID) ([]*Project, error) {
	return p.InNamespaceTx(ctx, p.db, namespaceID)
}

func (p *projects) InNamespaceTx(ctx context.Context, tx bun.IDB, namespaceID uuid.UUID) ([]*Project, error) {
	records := []*Project{}
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.namespace_id = ?", namespaceID).
		Order("path ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (p *projects) CountInNamespace(ctx context.Context, namespaceID uuid.UUID) (int, error) {
	return p.db.NewSelect().Model((*Project)(nil)).
		Where("?TableAlias.namespace_id = ?", namespaceID).
		Count(ctx)
}

func (p *projects) DeleteInNamespaceTx(ctx context.Context, tx bun.IDB, namespaceID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Project)(nil)).
		Where("?TableAlias.namespace_id = ?", namespaceID).
		Exec(ctx)

	return err
}
