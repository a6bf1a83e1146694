package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type CreateAccountMessage struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	AvatarURL      string `json:"avatar_url"`
	IsAdmin        bool   `json:"is_admin"`
	ProjectsLimit  *int   `json:"projects_limit"`
	CanCreateGroup *bool  `json:"can_create_group"`
	CanCreateTeam  *bool  `json:"can_create_team"`
	ThemeID        *int   `json:"theme_id"`
	UseHashid      bool
	OnResponse     func(*Account)
}

func (e CreateAccountMessage) Type() string { return "account.create" }

// Validate collects every field failure instead of stopping at the
// first, so callers can present all problems in one response.
func (e CreateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Username, validation.Length(1, 255)),
	)
}

// CreateAccountHandler creates an account together with its personal
// namespace inside one transaction, then notifies the hook dispatcher
// and audit sink.
type CreateAccountHandler struct {
	Repo     RepositoryManager
	Registry *IdentityRegistry
	Quota    *QuotaEnforcer
	Config   Config
	Hooks    HookDispatcher
	Activity ActivitySink
	Logger   Logger
}

func (h *CreateAccountHandler) Execute(ctx context.Context, event CreateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAccountHandler) execute(ctx context.Context, event CreateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid account attributes")
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		username := event.Username
		var err error
		if username == "" {
			if username, err = h.Registry.SanitizeUsernameTx(ctx, tx, event.Email); err != nil {
				return err
			}
		}

		if err := h.Registry.ReserveUsernameTx(ctx, tx, username, account.ID); err != nil {
			return err
		}

		if err := h.Registry.ReserveEmailTx(ctx, tx, event.Email, account.ID); err != nil {
			return err
		}

		hash := RandomPasswordHash()
		if event.Password != "" {
			if hash, err = HashPassword(event.Password); err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
		}

		account.Name = event.Name
		account.Username = username
		account.Email = event.Email
		account.AvatarURL = event.AvatarURL
		account.IsAdmin = event.IsAdmin
		account.PasswordHash = hash
		applyAccountConfigDefaults(account, event, h.Config)

		if err := h.Quota.ApplyDefaultLimit(account, event.ProjectsLimit); err != nil {
			return err
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		BindNotificationEmail(account, nil)

		if account, err = h.Repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return err
		}

		// personal namespace is created (or repaired) as part of the
		// same transaction as the account row
		if _, err := h.Repo.Namespaces().EnsureForAccountTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account creation transaction failed")
	}

	h.notify(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func (h *CreateAccountHandler) notify(ctx context.Context, account *Account) {
	logger := h.logger()

	hook := HookEvent{
		Type:       HookEventAccountCreated,
		Payload:    HookAttributes(account),
		OccurredAt: time.Now(),
	}
	if err := normalizeHookDispatcher(h.Hooks).Dispatch(ctx, hook); err != nil {
		logger.Warn("account create hook dispatch error: %v", err)
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountCreated,
		Actor:      ActorRef{Type: "system"},
		AccountID:  account.ID.String(),
		ToStatus:   account.Status,
		OccurredAt: time.Now(),
	}
	if err := normalizeActivitySink(h.Activity).Record(ctx, event); err != nil {
		logger.Warn("account create activity sink error: %v", err)
	}
}

func (h *CreateAccountHandler) logger() Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return defLogger{}
}

func applyAccountConfigDefaults(account *Account, event CreateAccountMessage, config Config) {
	if config == nil {
		if event.CanCreateGroup != nil {
			account.CanCreateGroup = *event.CanCreateGroup
		}
		if event.CanCreateTeam != nil {
			account.CanCreateTeam = *event.CanCreateTeam
		}
		if event.ThemeID != nil {
			account.ThemeID = *event.ThemeID
		}
		return
	}

	account.CanCreateGroup = config.GetDefaultCanCreateGroup()
	if event.CanCreateGroup != nil {
		account.CanCreateGroup = *event.CanCreateGroup
	}

	account.CanCreateTeam = config.GetDefaultCanCreateTeam()
	if event.CanCreateTeam != nil {
		account.CanCreateTeam = *event.CanCreateTeam
	}

	account.ThemeID = config.GetDefaultThemeID()
	if event.ThemeID != nil {
		account.ThemeID = *event.ThemeID
	}
}
