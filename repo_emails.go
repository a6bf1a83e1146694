package accounts

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Emails interface {
	repository.Repository[*Email]

	Create(ctx context.Context, record *Email, criteria ...repository.InsertCriteria) (*Email, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Email, criteria ...repository.InsertCriteria) (*Email, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*Email, error)
	ListForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]*Email, error)
	DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

type emails struct {
	repository.Repository[*Email]
	db *bun.DB
}

var (
	_ Emails                        = (*emails)(nil)
	_ repository.Repository[*Email] = (*emails)(nil)
)

func NewEmailsRepository(db *bun.DB) Emails {
	repo := repository.NewRepository[*Email](db, repository.ModelHandlers[*Email]{
		NewRecord: func() *Email { return &Email{} },
		GetID: func(e *Email) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *Email, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &emails{
		Repository: repo,
		db:         db,
	}
}

func (e *emails) Create(ctx context.Context, record *Email, criteria ...repository.InsertCriteria) (*Email, error) {
	return e.CreateTx(ctx, e.db, record, criteria...)
}

func (e *emails) CreateTx(ctx context.Context, tx bun.IDB, record *Email, criteria ...repository.InsertCriteria) (*Email, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := e.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, TranslateConstraintViolation(err)
	}
	return created, nil
}

func (e *emails) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*Email, error) {
	return e.ListForAccountTx(ctx, e.db, accountID)
}

func (e *emails) ListForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]*Email, error) {
	records := []*Email{}
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Order("email ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (e *emails) DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Email)(nil)).
		Where("?TableAlias.account_id = ?", accountID).
		Exec(ctx)

	return err
}
