package accounts

import (
	"context"
	"time"
)

// HookEventType enumerates outbound hook triggers.
type HookEventType string

const (
	HookEventAccountCreated HookEventType = "account_create"
	HookEventAccountDeleted HookEventType = "account_destroy"
)

// HookPayload is the stable attribute triple downstream hook listeners
// key off of. Changing these fields is a breaking change.
type HookPayload struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// HookEvent is delivered to the dispatcher on account creation and deletion.
type HookEvent struct {
	Type       HookEventType `json:"event_name"`
	Payload    HookPayload   `json:"payload"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// HookAttributes builds the public hook payload for an account.
func HookAttributes(account *Account) HookPayload {
	if account == nil {
		return HookPayload{}
	}

	return HookPayload{
		Name:      account.Name,
		Username:  account.Username,
		AvatarURL: account.AvatarURL,
	}
}

// HookDispatcher delivers hook events to external listeners. Dispatch is
// fire-and-forget from the core's perspective; errors are logged, not
// surfaced to the mutation that triggered them.
type HookDispatcher interface {
	Dispatch(ctx context.Context, event HookEvent) error
}

// HookDispatcherFunc adapts a function to the HookDispatcher interface.
type HookDispatcherFunc func(ctx context.Context, event HookEvent) error

// Dispatch implements HookDispatcher.
func (f HookDispatcherFunc) Dispatch(ctx context.Context, event HookEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopHookDispatcher struct{}

func (noopHookDispatcher) Dispatch(context.Context, HookEvent) error {
	return nil
}

func normalizeHookDispatcher(d HookDispatcher) HookDispatcher {
	if d == nil {
		return noopHookDispatcher{}
	}
	return d
}
