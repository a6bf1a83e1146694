package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransitionMetadata captures extra context for a lifecycle transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the recorded activity event.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithBlockTime overrides the timestamp recorded when entering the
// blocked state.
func WithBlockTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.blockTime = &t
	}
}

// StatusUpdater persists lifecycle status changes. Satisfied by the
// Accounts repository; narrow on purpose so tests can stub it.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus, opts ...StatusUpdateOption) (*Account, error)
}

// AccountStateMachine defines lifecycle operations for accounts.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish
// lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by the
// provided repository. The lifecycle graph has exactly two states and is
// fully connected; a transition into the current state is an idempotent
// no-op, never an error.
func NewAccountStateMachine(accounts StatusUpdater, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		accounts: accounts,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusActive: {
				AccountStatusBlocked: {},
			},
			AccountStatusBlocked: {
				AccountStatusActive: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	accounts     StatusUpdater
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata  TransitionMetadata
	blockTime *time.Time
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	account.EnsureStatus()
	from := account.Status

	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	// idempotent no-op; retried transitions must not fail
	if from == target {
		return account, nil
	}

	options := sm.buildTransitionOptions(opts...)

	if _, ok := sm.transitions[from][target]; !ok {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	statusOpts, blockedAt := sm.buildStatusOptions(account, from, target, options)

	updated, err := sm.accounts.UpdateStatus(ctx, account.ID, target, statusOpts...)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(account, updated, target, from, blockedAt)

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountStatusChanged,
		Actor:      actor,
		AccountID:  account.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(options.metadata),
	})

	return account, nil
}

func (sm *accountStateMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil {
		return ""
	}
	account.EnsureStatus()
	return account.Status
}

func (sm *accountStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *accountStateMachine) buildStatusOptions(account *Account, from, to AccountStatus, opts *transitionOptions) ([]StatusUpdateOption, *time.Time) {
	statusOpts := []StatusUpdateOption{}
	var blockedAt *time.Time

	if to == AccountStatusBlocked {
		switch {
		case opts.blockTime != nil:
			blockedAt = opts.blockTime
		case account.BlockedAt != nil:
			blockedAt = account.BlockedAt
		default:
			now := sm.now()
			blockedAt = &now
		}
		statusOpts = append(statusOpts, WithBlockedAt(blockedAt))
	} else if from == AccountStatusBlocked && account.BlockedAt != nil {
		statusOpts = append(statusOpts, WithBlockedAt(nil))
	}

	return statusOpts, blockedAt
}

func (sm *accountStateMachine) applyUpdates(account, updated *Account, target, from AccountStatus, blockedAt *time.Time) {
	if updated != nil {
		if updated.Status != "" {
			account.Status = updated.Status
		} else {
			account.Status = target
		}
		account.BlockedAt = updated.BlockedAt
		return
	}

	account.Status = target
	if target == AccountStatusBlocked {
		account.BlockedAt = blockedAt
	} else if from == AccountStatusBlocked {
		account.BlockedAt = nil
	}
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (sm *accountStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
