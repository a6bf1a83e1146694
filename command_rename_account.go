package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RenameAccountMessage struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	OnResponse func(*Account)
}

func (e RenameAccountMessage) Type() string { return "account.rename" }

func (e RenameAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required),
		validation.Field(&e.Username, validation.Required, validation.Length(1, 255)),
	)
}

// RenameAccountHandler changes an account username and moves its
// personal namespace to the new path in the same transaction, so the
// two values can never be observed out of sync.
type RenameAccountHandler struct {
	Repo     RepositoryManager
	Registry *IdentityRegistry
	Activity ActivitySink
	Logger   Logger
}

func (h *RenameAccountHandler) Execute(ctx context.Context, event RenameAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account rename",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RenameAccountHandler) execute(ctx context.Context, event RenameAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid rename attributes")
	}

	var account *Account
	var previous string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.Repo.Accounts().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil {
			return err
		}

		previous = record.Username
		if previous == event.Username {
			account = record
			return nil
		}

		if err := h.Registry.ReserveUsernameTx(ctx, tx, event.Username, record.ID); err != nil {
			return err
		}

		record.Username = event.Username
		if account, err = h.Repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(record.ID.String())); err != nil {
			return TranslateConstraintViolation(err)
		}

		return h.Repo.Namespaces().RenameForAccountTx(ctx, tx, account)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account rename transaction failed")
	}

	if previous != account.Username {
		activity := ActivityEvent{
			EventType: ActivityEventAccountRenamed,
			Actor:     ActorRef{Type: "system"},
			AccountID: account.ID.String(),
			Metadata: map[string]any{
				"from": previous,
				"to":   account.Username,
			},
			OccurredAt: time.Now(),
		}
		if err := normalizeActivitySink(h.Activity).Record(ctx, activity); err != nil {
			h.logger().Warn("account rename activity sink error: %v", err)
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *RenameAccountHandler) logger() Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return defLogger{}
}
