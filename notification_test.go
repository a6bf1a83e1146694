package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secondaries(addrs ...string) []*accounts.Email {
	out := make([]*accounts.Email, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &accounts.Email{ID: uuid.New(), Email: a})
	}
	return out
}

func TestOwnedEmails(t *testing.T) {
	account := &accounts.Account{Email: "primary@example.com"}
	owned := accounts.OwnedEmails(account, secondaries("work@example.com", "alt@example.com"))
	assert.Equal(t, []string{"primary@example.com", "work@example.com", "alt@example.com"}, owned)

	assert.Nil(t, accounts.OwnedEmails(nil, nil))
}

func TestOwnsEmailIsCaseInsensitive(t *testing.T) {
	account := &accounts.Account{Email: "primary@example.com"}
	set := secondaries("work@example.com")

	assert.True(t, accounts.OwnsEmail(account, set, "Primary@Example.com"))
	assert.True(t, accounts.OwnsEmail(account, set, "WORK@example.com"))
	assert.False(t, accounts.OwnsEmail(account, set, "other@example.com"))
}

func TestBindNotificationEmail(t *testing.T) {
	t.Run("keeps an owned secondary address", func(t *testing.T) {
		account := &accounts.Account{
			Email:             "primary@example.com",
			NotificationEmail: "work@example.com",
		}
		accounts.BindNotificationEmail(account, secondaries("work@example.com"))
		assert.Equal(t, "work@example.com", account.NotificationEmail)
	})

	t.Run("resets an orphaned address to the primary", func(t *testing.T) {
		account := &accounts.Account{
			Email:             "new@example.com",
			NotificationEmail: "old@example.com",
		}
		accounts.BindNotificationEmail(account, nil)
		assert.Equal(t, "new@example.com", account.NotificationEmail)
	})

	t.Run("fills an empty address from the primary", func(t *testing.T) {
		account := &accounts.Account{Email: "primary@example.com"}
		accounts.BindNotificationEmail(account, nil)
		assert.Equal(t, "primary@example.com", account.NotificationEmail)
	})
}

func TestValidateNotificationEmail(t *testing.T) {
	account := &accounts.Account{Email: "primary@example.com"}
	set := secondaries("work@example.com")

	require.NoError(t, accounts.ValidateNotificationEmail(account, set, "work@example.com"))
	require.NoError(t, accounts.ValidateNotificationEmail(account, set, "primary@example.com"))

	err := accounts.ValidateNotificationEmail(account, set, "other@example.com")
	require.Error(t, err)
	assert.Equal(t, "NOTIFICATION_EMAIL_NOT_OWNED", textCode(t, err))

	require.Error(t, accounts.ValidateNotificationEmail(account, set, ""))
}
