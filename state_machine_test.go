package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusCall struct {
	id     uuid.UUID
	status accounts.AccountStatus
	record accounts.Account
}

type statusUpdaterStub struct {
	calls []statusCall
	err   error
}

func (s *statusUpdaterStub) UpdateStatus(_ context.Context, id uuid.UUID, status accounts.AccountStatus, opts ...accounts.StatusUpdateOption) (*accounts.Account, error) {
	record := &accounts.Account{ID: id, Status: status}
	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	s.calls = append(s.calls, statusCall{id: id, status: status, record: *record})
	if s.err != nil {
		return nil, s.err
	}
	return record, nil
}

func TestStateMachineBlockSetsTimestamp(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	updater := &statusUpdaterStub{}
	sink := &capturingSink{}

	sm := accounts.NewAccountStateMachine(updater,
		accounts.WithStateMachineClock(func() time.Time { return frozen }),
		accounts.WithStateMachineActivitySink(sink),
	)

	account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatusActive}
	actor := accounts.ActorRef{ID: "admin-1", Type: "admin"}

	updated, err := sm.Transition(context.Background(), actor, account, accounts.AccountStatusBlocked,
		accounts.WithTransitionReason("abuse report"))
	require.NoError(t, err)

	assert.Equal(t, accounts.AccountStatusBlocked, updated.Status)
	require.NotNil(t, updated.BlockedAt)
	assert.True(t, updated.BlockedAt.Equal(frozen))

	require.Len(t, updater.calls, 1)
	assert.Equal(t, account.ID, updater.calls[0].id)
	require.NotNil(t, updater.calls[0].record.BlockedAt)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, accounts.ActivityEventAccountStatusChanged, events[0].EventType)
	assert.Equal(t, accounts.AccountStatusActive, events[0].FromStatus)
	assert.Equal(t, accounts.AccountStatusBlocked, events[0].ToStatus)
	assert.Equal(t, "admin-1", events[0].Actor.ID)
	assert.Equal(t, "abuse report", events[0].Metadata["reason"])
	assert.True(t, events[0].OccurredAt.Equal(frozen))
}

func TestStateMachineActivateClearsTimestamp(t *testing.T) {
	updater := &statusUpdaterStub{}
	sink := &capturingSink{}
	sm := accounts.NewAccountStateMachine(updater, accounts.WithStateMachineActivitySink(sink))

	blockedAt := time.Now().Add(-time.Hour)
	account := &accounts.Account{
		ID:        uuid.New(),
		Status:    accounts.AccountStatusBlocked,
		BlockedAt: &blockedAt,
	}

	updated, err := sm.Transition(context.Background(), accounts.ActorRef{}, account, accounts.AccountStatusActive)
	require.NoError(t, err)

	assert.Equal(t, accounts.AccountStatusActive, updated.Status)
	assert.Nil(t, updated.BlockedAt)

	events := sink.Events()
	require.Len(t, events, 1)
	// missing actors default to system so the audit trail never has holes
	assert.Equal(t, "system", events[0].Actor.Type)
}

func TestStateMachineIdempotentNoOp(t *testing.T) {
	updater := &statusUpdaterStub{}
	sink := &capturingSink{}
	sm := accounts.NewAccountStateMachine(updater, accounts.WithStateMachineActivitySink(sink))

	account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatusActive}

	updated, err := sm.Transition(context.Background(), accounts.ActorRef{}, account, accounts.AccountStatusActive)
	require.NoError(t, err)
	assert.Same(t, account, updated)

	assert.Empty(t, updater.calls)
	assert.Empty(t, sink.Events())
}

func TestStateMachineRejectsUnknownTarget(t *testing.T) {
	sm := accounts.NewAccountStateMachine(&statusUpdaterStub{})
	account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatusActive}

	_, err := sm.Transition(context.Background(), accounts.ActorRef{}, account, "archived")
	require.Error(t, err)

	_, err = sm.Transition(context.Background(), accounts.ActorRef{}, account, "")
	require.Error(t, err)

	_, err = sm.Transition(context.Background(), accounts.ActorRef{}, nil, accounts.AccountStatusBlocked)
	require.Error(t, err)
}

func TestStateMachineDefaultsEmptyStatusToActive(t *testing.T) {
	sm := accounts.NewAccountStateMachine(&statusUpdaterStub{})

	account := &accounts.Account{ID: uuid.New()}
	assert.Equal(t, accounts.AccountStatusActive, sm.CurrentStatus(account))

	_, err := sm.Transition(context.Background(), accounts.ActorRef{}, &accounts.Account{ID: uuid.New()}, accounts.AccountStatusBlocked)
	require.NoError(t, err)
}

func TestStateMachineSinkFailureDoesNotBlockTransition(t *testing.T) {
	updater := &statusUpdaterStub{}
	sink := &capturingSink{err: errors.New("sink unavailable")}
	sm := accounts.NewAccountStateMachine(updater,
		accounts.WithStateMachineActivitySink(sink),
		accounts.WithStateMachineLogger(silentLogger{}),
	)

	account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatusActive}
	updated, err := sm.Transition(context.Background(), accounts.ActorRef{}, account, accounts.AccountStatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusBlocked, updated.Status)
}

func TestStateMachinePropagatesStoreError(t *testing.T) {
	updater := &statusUpdaterStub{err: errors.New("write failed")}
	sm := accounts.NewAccountStateMachine(updater)

	account := &accounts.Account{ID: uuid.New(), Status: accounts.AccountStatusActive}
	_, err := sm.Transition(context.Background(), accounts.ActorRef{}, account, accounts.AccountStatusBlocked)
	require.Error(t, err)
	assert.Equal(t, accounts.AccountStatusActive, account.Status)
}
