package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProjectCounter reports how many projects live under an account's
// personal namespace. Group and direct-membership projects never count
// against the quota.
type ProjectCounter interface {
	CountPersonalProjects(ctx context.Context, accountID uuid.UUID) (int, error)
}

// QuotaEnforcer answers whether an account may create one more personal
// project. The default ceiling comes from config, injected at
// construction instead of read from ambient globals.
type QuotaEnforcer struct {
	counter      ProjectCounter
	defaultLimit int
}

// NewQuotaEnforcer builds an enforcer bound to the given counter and the
// registry-wide default limit from config.
func NewQuotaEnforcer(counter ProjectCounter, config Config) *QuotaEnforcer {
	limit := 0
	if config != nil {
		limit = config.GetDefaultProjectsLimit()
	}

	return &QuotaEnforcer{
		counter:      counter,
		defaultLimit: limit,
	}
}

// ApplyDefaultLimit assigns the registry default when no explicit limit
// was supplied at creation time.
func (q *QuotaEnforcer) ApplyDefaultLimit(account *Account, explicit *int) error {
	if account == nil {
		return nil
	}

	if explicit == nil {
		account.ProjectsLimit = q.defaultLimit
		return nil
	}

	if *explicit < 0 {
		return ErrProjectsLimitInvalid.WithMetadata(map[string]any{
			"projects_limit": *explicit,
		})
	}

	account.ProjectsLimit = *explicit
	return nil
}

// CanCreateProject reports whether the account has quota left for one
// more personally owned project.
//
// NOTE: a limit of zero makes this always false while LimitRemainingPercent
// treats zero as "unlimited display". The two computations intentionally
// disagree; callers wanting zero to mean "no limit" must check for it
// themselves.
func (q *QuotaEnforcer) CanCreateProject(ctx context.Context, account *Account) (bool, error) {
	if account == nil {
		return false, nil
	}

	count, err := q.counter.CountPersonalProjects(ctx, account.ID)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "personal project count failed")
	}

	return account.ProjectsLimit-count > 0, nil
}

// LimitRemainingPercent returns 100 when the limit is zero, otherwise the
// personal project count as a percentage of the limit.
func (q *QuotaEnforcer) LimitRemainingPercent(ctx context.Context, account *Account) (int, error) {
	if account == nil || account.ProjectsLimit == 0 {
		return 100, nil
	}

	count, err := q.counter.CountPersonalProjects(ctx, account.ID)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "personal project count failed")
	}

	return count * 100 / account.ProjectsLimit, nil
}
