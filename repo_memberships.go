package accounts

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Memberships interface {
	repository.Repository[*Membership]

	Grant(ctx context.Context, record *Membership) (*Membership, error)
	GrantTx(ctx context.Context, tx bun.IDB, record *Membership) (*Membership, error)
	Revoke(ctx context.Context, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID) error

	UpdateLevel(ctx context.Context, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID, level AccessLevel) error
	UpdateLevelTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID, level AccessLevel) error

	BySource(ctx context.Context, accountID uuid.UUID, source MembershipSource) ([]*Membership, error)
	BySourceTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource) ([]*Membership, error)
	DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

type memberships struct {
	repository.Repository[*Membership]
	db *bun.DB
}

var (
	_ Memberships                        = (*memberships)(nil)
	_ repository.Repository[*Membership] = (*memberships)(nil)
)

func NewMembershipsRepository(db *bun.DB) Memberships {
	repo := repository.NewRepository[*Membership](db, repository.ModelHandlers[*Membership]{
		NewRecord: func() *Membership { return &Membership{} },
		GetID: func(m *Membership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Membership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &memberships{
		Repository: repo,
		db:         db,
	}
}

func (m *memberships) Grant(ctx context.Context, record *Membership) (*Membership, error) {
	return m.GrantTx(ctx, m.db, record)
}

func (m *memberships) GrantTx(ctx context.Context, tx bun.IDB, record *Membership) (*Membership, error) {
	if record == nil {
		return nil, ErrNoEmptyString
	}

	if !record.AccessLevel.IsValid() {
		return nil, ErrAccessLevelInvalid.WithMetadata(map[string]any{
			"access_level": int(record.AccessLevel),
		})
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := m.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, TranslateConstraintViolation(err)
	}
	return created, nil
}

func (m *memberships) Revoke(ctx context.Context, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID) error {
	return m.RevokeTx(ctx, m.db, accountID, source, sourceID)
}

func (m *memberships) RevokeTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Membership)(nil)).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.source_type = ?", source).
		Where("?TableAlias.source_id = ?", sourceID).
		Exec(ctx)

	return err
}

func (m *memberships) UpdateLevel(ctx context.Context, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID, level AccessLevel) error {
	return m.UpdateLevelTx(ctx, m.db, accountID, source, sourceID, level)
}

func (m *memberships) UpdateLevelTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource, sourceID uuid.UUID, level AccessLevel) error {
	if !level.IsValid() {
		return ErrAccessLevelInvalid.WithMetadata(map[string]any{
			"access_level": int(level),
		})
	}

	_, err := tx.NewUpdate().Model((*Membership)(nil)).
		Set("access_level = ?", level).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.source_type = ?", source).
		Where("?TableAlias.source_id = ?", sourceID).
		Exec(ctx)

	return err
}

func (m *memberships) BySource(ctx context.Context, accountID uuid.UUID, source MembershipSource) ([]*Membership, error) {
	return m.BySourceTx(ctx, m.db, accountID, source)
}

func (m *memberships) BySourceTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, source MembershipSource) ([]*Membership, error) {
	records := []*Membership{}
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Where("?TableAlias.source_type = ?", source).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (m *memberships) DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	_, err := tx.NewDelete().Model((*Membership)(nil)).
		Where("?TableAlias.account_id = ?", accountID).
		Exec(ctx)

	return err
}
