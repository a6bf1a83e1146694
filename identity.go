package accounts

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// maxUsernameGenerationAttempts caps the suffix loop so pathological input
// cannot spin forever.
const maxUsernameGenerationAttempts = 10000

var usernameInvalidChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// IdentityStore answers the uniqueness questions the registry needs. A
// nil tx runs the check outside any transaction; mutations must pass the
// transaction they are about to write in so check and write share one
// boundary. The excluding id lets a no-op rename (same value) pass.
type IdentityStore interface {
	UsernameTaken(ctx context.Context, tx bun.IDB, username string, excluding uuid.UUID) (bool, error)
	NamespacePathTaken(ctx context.Context, tx bun.IDB, path string, excluding uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, tx bun.IDB, email string, excluding uuid.UUID) (bool, error)
}

// IdentityRegistry owns the uniqueness of usernames, namespace paths, and
// emails across all accounts. Its checks narrow the race window; the
// store's unique indexes remain the backstop and a violation there
// surfaces through TranslateConstraintViolation.
type IdentityRegistry struct {
	store    IdentityStore
	reserved map[string]struct{}
	logger   Logger
}

// IdentityRegistryOption customizes registry construction.
type IdentityRegistryOption func(*IdentityRegistry)

// WithIdentityLogger overrides the registry logger.
func WithIdentityLogger(logger Logger) IdentityRegistryOption {
	return func(r *IdentityRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewIdentityRegistry builds a registry with the reserved-path denylist
// taken from config plus the built-in system paths.
func NewIdentityRegistry(store IdentityStore, config Config, opts ...IdentityRegistryOption) *IdentityRegistry {
	reserved := make(map[string]struct{}, len(defaultReservedPaths))
	for _, p := range defaultReservedPaths {
		reserved[strings.ToLower(p)] = struct{}{}
	}

	if config != nil {
		for _, p := range config.GetReservedPaths() {
			reserved[strings.ToLower(p)] = struct{}{}
		}
	}

	registry := &IdentityRegistry{
		store:    store,
		reserved: reserved,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}

	return registry
}

// ReserveUsername checks the candidate outside any transaction.
func (r *IdentityRegistry) ReserveUsername(ctx context.Context, candidate string, excluding uuid.UUID) error {
	return r.ReserveUsernameTx(ctx, nil, candidate, excluding)
}

// ReserveUsernameTx checks the candidate against the reserved denylist,
// every account username, and the full namespace path space (personal
// and group). It performs no write; the caller persists inside the same
// transaction immediately after a successful check.
func (r *IdentityRegistry) ReserveUsernameTx(ctx context.Context, tx bun.IDB, candidate string, excluding uuid.UUID) error {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ErrNoEmptyString
	}

	if r.isReserved(candidate) {
		return ErrUsernameReserved.WithMetadata(map[string]any{
			"username": candidate,
		})
	}

	taken, err := r.store.UsernameTaken(ctx, tx, candidate, excluding)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "username uniqueness check failed")
	}
	if taken {
		return ErrUsernameTaken.WithMetadata(map[string]any{
			"username": candidate,
		})
	}

	// a username collides with any namespace path, even when no account
	// uses that exact username (e.g. a group with the same path)
	taken, err = r.store.NamespacePathTaken(ctx, tx, candidate, excluding)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "namespace path uniqueness check failed")
	}
	if taken {
		return ErrUsernameTaken.WithMetadata(map[string]any{
			"username": candidate,
			"conflict": "namespace",
		})
	}

	return nil
}

// ReserveEmail checks the candidate outside any transaction.
func (r *IdentityRegistry) ReserveEmail(ctx context.Context, candidate string, excluding uuid.UUID) error {
	return r.ReserveEmailTx(ctx, nil, candidate, excluding)
}

// ReserveEmailTx checks the candidate against every primary and
// secondary address system-wide.
func (r *IdentityRegistry) ReserveEmailTx(ctx context.Context, tx bun.IDB, candidate string, excluding uuid.UUID) error {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ErrNoEmptyString
	}

	taken, err := r.store.EmailTaken(ctx, tx, candidate, excluding)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email uniqueness check failed")
	}
	if taken {
		return ErrEmailTaken.WithMetadata(map[string]any{
			"email": candidate,
		})
	}

	return nil
}

// SanitizeUsername derives a username outside any transaction.
func (r *IdentityRegistry) SanitizeUsername(ctx context.Context, candidate string) (string, error) {
	return r.SanitizeUsernameTx(ctx, nil, candidate)
}

// SanitizeUsernameTx derives a valid, unique username from an external
// candidate such as the local part of an email address. When the cleaned
// base collides it appends an increasing integer suffix until the first
// free candidate wins.
func (r *IdentityRegistry) SanitizeUsernameTx(ctx context.Context, tx bun.IDB, candidate string) (string, error) {
	base := CleanUsername(candidate)
	if base == "" {
		return "", ErrNoEmptyString
	}

	name := base
	for i := 0; i < maxUsernameGenerationAttempts; i++ {
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i)
		}

		if r.isReserved(name) {
			continue
		}

		taken, err := r.store.UsernameTaken(ctx, tx, name, uuid.Nil)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "username uniqueness check failed")
		}
		if taken {
			continue
		}

		taken, err = r.store.NamespacePathTaken(ctx, tx, name, uuid.Nil)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "namespace path uniqueness check failed")
		}
		if !taken {
			return name, nil
		}
	}

	return "", ErrUsernameGenerationExhausted.WithMetadata(map[string]any{
		"candidate": candidate,
	})
}

func (r *IdentityRegistry) isReserved(name string) bool {
	_, ok := r.reserved[strings.ToLower(name)]
	return ok
}

// CleanUsername normalizes a raw candidate: strip everything from the
// first @, a trailing .git suffix, a single leading dash, and every
// character outside [A-Za-z0-9_.-].
func CleanUsername(candidate string) string {
	name := strings.TrimSpace(candidate)

	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	name = strings.TrimSuffix(name, ".git")
	name = strings.TrimPrefix(name, "-")
	name = usernameInvalidChars.ReplaceAllString(name, "")

	return name
}
