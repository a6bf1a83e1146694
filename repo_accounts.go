package accounts

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Accounts interface {
	repository.Repository[*Account]

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	FindByLogin(ctx context.Context, login string) (*Account, error)
	FindByLoginTx(ctx context.Context, tx bun.IDB, login string) (*Account, error)
	FindForCommitAuthor(ctx context.Context, email, name string) (*Account, error)
	FindForCommitAuthorTx(ctx context.Context, tx bun.IDB, email, name string) (*Account, error)
	SearchByText(ctx context.Context, query string) ([]*Account, error)
	ListByFilter(ctx context.Context, filter AccountFilter) ([]*Account, error)

	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
	Block(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
	Activate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db                  *bun.DB
	stateMachine        AccountStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

type AccountsOption func(*accounts)

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}

	return repoAccounts
}

func WithAccountsStateMachineOptions(options ...StateMachineOption) AccountsOption {
	return func(a *accounts) {
		if len(options) == 0 {
			return
		}
		a.stateMachineOptions = append(a.stateMachineOptions, options...)
		a.stateMachine = nil
	}
}

func WithAccountsStateMachine(sm AccountStateMachine) AccountsOption {
	return func(a *accounts) {
		a.stateMachine = sm
	}
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &Account{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, TranslateConstraintViolation(err)
	}
	return created, nil
}

// FindByLogin matches the login string case-insensitively against the
// username OR the primary email. Used by the authentication collaborator
// in place of a strict single-field lookup.
func (a *accounts) FindByLogin(ctx context.Context, login string) (*Account, error) {
	return a.FindByLoginTx(ctx, a.db, login)
}

func (a *accounts) FindByLoginTx(ctx context.Context, tx bun.IDB, login string) (*Account, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Account{}
	err := tx.NewSelect().Model(record).
		Where("lower(?TableAlias.username) = lower(?)", login).
		WhereOr("lower(?TableAlias.email) = lower(?)", login).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"login": login,
				})
		}
		return nil, err
	}

	return record, nil
}

// FindForCommitAuthor attributes free-text commit author data to an
// account. Resolution order: exact primary email, any secondary email,
// then display name. First hit wins.
func (a *accounts) FindForCommitAuthor(ctx context.Context, email, name string) (*Account, error) {
	return a.FindForCommitAuthorTx(ctx, a.db, email, name)
}

func (a *accounts) FindForCommitAuthorTx(ctx context.Context, tx bun.IDB, email, name string) (*Account, error) {
	if email != "" {
		record := &Account{}
		err := tx.NewSelect().Model(record).
			Where("lower(?TableAlias.email) = lower(?)", email).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return record, nil
		}
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}

		record = &Account{}
		err = tx.NewSelect().Model(record).
			Join("JOIN emails AS eml ON eml.account_id = ?TableAlias.id").
			Where("lower(eml.email) = lower(?)", email).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return record, nil
		}
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	if name != "" {
		record := &Account{}
		err := tx.NewSelect().Model(record).
			Where("?TableAlias.name = ?", name).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return record, nil
		}
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"email": email,
			"name":  name,
		})
}

// SearchByText is a case-insensitive substring match against name, email,
// or username.
func (a *accounts) SearchByText(ctx context.Context, query string) ([]*Account, error) {
	records := []*Account{}

	query = strings.TrimSpace(query)
	if query == "" {
		return records, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	err := a.db.NewSelect().Model(&records).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("lower(?TableAlias.name) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.email) LIKE ?", pattern).
				WhereOr("lower(?TableAlias.username) LIKE ?", pattern)
		}).
		Order("username ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accounts) ListByFilter(ctx context.Context, filter AccountFilter) ([]*Account, error) {
	records := []*Account{}

	err := a.db.NewSelect().Model(&records).
		Apply(filter.Criteria()).
		Order("username ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accounts) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	return err
}

func (a *accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	record := &Account{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *accounts) Block(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusBlocked, opts...)
}

func (a *accounts) Activate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return a.lifecycleMachine().Transition(ctx, actor, account, AccountStatusActive, opts...)
}

// StatusUpdateOption allows callers to mutate the account record before
// persisting status changes.
type StatusUpdateOption func(*Account)

// WithBlockedAt sets the BlockedAt timestamp during a status transition.
func WithBlockedAt(at *time.Time) StatusUpdateOption {
	return func(a *Account) {
		a.BlockedAt = at
	}
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.NotificationEmail == "" {
		record.NotificationEmail = record.Email
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

func (a *accounts) lifecycleMachine() AccountStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewAccountStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}
