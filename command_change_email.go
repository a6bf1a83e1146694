package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ChangeEmailMessage struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	OnResponse func(*Account)
}

func (e ChangeEmailMessage) Type() string { return "account.change_email" }

func (e ChangeEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// ChangeEmailHandler replaces the primary email address. The uniqueness
// check, the write, and the notification-email rebind all run in one
// transaction; a notification address orphaned by the change falls back
// to the new primary.
type ChangeEmailHandler struct {
	Repo     RepositoryManager
	Registry *IdentityRegistry
	Logger   Logger
}

func (h *ChangeEmailHandler) Execute(ctx context.Context, event ChangeEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeEmailHandler) execute(ctx context.Context, event ChangeEmailMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email attributes")
	}

	var account *Account

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.Repo.Accounts().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil {
			return err
		}

		if err := h.Registry.ReserveEmailTx(ctx, tx, event.Email, record.ID); err != nil {
			return err
		}

		secondaries, err := h.Repo.Emails().ListForAccountTx(ctx, tx, record.ID)
		if err != nil {
			return err
		}

		record.Email = event.Email
		BindNotificationEmail(record, secondaries)

		if account, err = h.Repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(record.ID.String())); err != nil {
			return TranslateConstraintViolation(err)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "email change transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

type SetNotificationEmailMessage struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	OnResponse func(*Account)
}

func (e SetNotificationEmailMessage) Type() string { return "account.set_notification_email" }

func (e SetNotificationEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
	)
}

// SetNotificationEmailHandler points the notification address at one of
// the account's owned emails. An address outside the owned set is
// rejected outright, never silently corrected.
type SetNotificationEmailHandler struct {
	Repo   RepositoryManager
	Logger Logger
}

func (h *SetNotificationEmailHandler) Execute(ctx context.Context, event SetNotificationEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during notification email update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetNotificationEmailHandler) execute(ctx context.Context, event SetNotificationEmailMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid notification email attributes")
	}

	var account *Account

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.Repo.Accounts().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil {
			return err
		}

		secondaries, err := h.Repo.Emails().ListForAccountTx(ctx, tx, record.ID)
		if err != nil {
			return err
		}

		if err := ValidateNotificationEmail(record, secondaries, event.Email); err != nil {
			return err
		}

		record.NotificationEmail = event.Email
		if account, err = h.Repo.Accounts().UpdateTx(ctx, tx, record,
			repository.UpdateByID(record.ID.String())); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "notification email transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}
