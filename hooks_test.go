package accounts_test

import (
	"context"
	"encoding/json"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookAttributes(t *testing.T) {
	account := &accounts.Account{
		Name:      "Jane Doe",
		Username:  "jane",
		AvatarURL: "https://cdn.example.com/a/jane.png",
		Email:     "jane@example.com",
	}

	payload := accounts.HookAttributes(account)
	assert.Equal(t, "Jane Doe", payload.Name)
	assert.Equal(t, "jane", payload.Username)
	assert.Equal(t, "https://cdn.example.com/a/jane.png", payload.AvatarURL)

	assert.Equal(t, accounts.HookPayload{}, accounts.HookAttributes(nil))
}

// the payload field names are a public contract; listeners key off them
func TestHookPayloadWireFormat(t *testing.T) {
	payload := accounts.HookPayload{
		Name:      "Jane Doe",
		Username:  "jane",
		AvatarURL: "https://cdn.example.com/a/jane.png",
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Len(t, decoded, 3)
	assert.Contains(t, decoded, "name")
	assert.Contains(t, decoded, "username")
	assert.Contains(t, decoded, "avatar_url")
}

func TestHookDispatcherFunc(t *testing.T) {
	called := false
	dispatcher := accounts.HookDispatcherFunc(func(context.Context, accounts.HookEvent) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Dispatch(context.Background(), accounts.HookEvent{}))
	assert.True(t, called)

	var nilFunc accounts.HookDispatcherFunc
	require.NoError(t, nilFunc.Dispatch(context.Background(), accounts.HookEvent{}))
}
