package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	Identifier string `json:"identifier"`
	Actor      ActorRef
	OnResponse func(*Account)
}

func (e DeleteAccountMessage) Type() string { return "account.delete" }

func (e DeleteAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identifier, validation.Required),
	)
}

// DeleteAccountHandler removes an account and every record that hangs
// off it in one transaction. Order matters: memberships, secondary
// emails, the personal namespace's projects, the namespace itself, then
// the account row, so no step can orphan rows a later step needed.
type DeleteAccountHandler struct {
	Repo     RepositoryManager
	Hooks    HookDispatcher
	Activity ActivitySink
	Logger   Logger
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid delete attributes")
	}

	var account *Account

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.Repo.Accounts().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil {
			return err
		}
		account = record

		if err := h.Repo.Memberships().DeleteForAccountTx(ctx, tx, record.ID); err != nil {
			return err
		}

		if err := h.Repo.Emails().DeleteForAccountTx(ctx, tx, record.ID); err != nil {
			return err
		}

		ns, err := h.Repo.Namespaces().PersonalForTx(ctx, tx, record.ID)
		if err != nil && !repository.IsRecordNotFound(err) {
			return err
		}
		if err == nil {
			if err := h.Repo.Projects().DeleteInNamespaceTx(ctx, tx, ns.ID); err != nil {
				return err
			}
		}

		if err := h.Repo.Namespaces().DeleteForAccountTx(ctx, tx, record.ID); err != nil {
			return err
		}

		return h.Repo.Accounts().DeleteByIDTx(ctx, tx, record.ID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion transaction failed")
	}

	h.notify(ctx, event.Actor, account)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *DeleteAccountHandler) notify(ctx context.Context, actor ActorRef, account *Account) {
	logger := h.logger()

	// payload attributes come from the record as it was before deletion
	hook := HookEvent{
		Type:       HookEventAccountDeleted,
		Payload:    HookAttributes(account),
		OccurredAt: time.Now(),
	}
	if err := normalizeHookDispatcher(h.Hooks).Dispatch(ctx, hook); err != nil {
		logger.Warn("account destroy hook dispatch error: %v", err)
	}

	if actor.Type == "" {
		actor.Type = "system"
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountDeleted,
		Actor:      actor,
		AccountID:  account.ID.String(),
		FromStatus: account.Status,
		OccurredAt: time.Now(),
	}
	if err := normalizeActivitySink(h.Activity).Record(ctx, event); err != nil {
		logger.Warn("account destroy activity sink error: %v", err)
	}
}

func (h *DeleteAccountHandler) logger() Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return defLogger{}
}
