package accounts

import "strings"

// OwnedEmails is the set of addresses an account provably owns: the
// primary email plus every secondary record.
func OwnedEmails(account *Account, secondaries []*Email) []string {
	if account == nil {
		return nil
	}

	owned := make([]string, 0, len(secondaries)+1)
	if account.Email != "" {
		owned = append(owned, account.Email)
	}
	for _, e := range secondaries {
		if e != nil && e.Email != "" {
			owned = append(owned, e.Email)
		}
	}
	return owned
}

// OwnsEmail reports whether the address belongs to the account's owned set.
func OwnsEmail(account *Account, secondaries []*Email, email string) bool {
	for _, owned := range OwnedEmails(account, secondaries) {
		if strings.EqualFold(owned, email) {
			return true
		}
	}
	return false
}

// BindNotificationEmail resets the notification address to the primary
// email whenever the current value is empty or no longer owned. It runs
// as a pre-write step on every primary email change. It never fires on a
// direct notification-email write; those go through
// ValidateNotificationEmail and are rejected, not corrected.
func BindNotificationEmail(account *Account, secondaries []*Email) {
	if account == nil {
		return
	}

	if account.NotificationEmail == "" || !OwnsEmail(account, secondaries, account.NotificationEmail) {
		account.NotificationEmail = account.Email
	}
}

// ValidateNotificationEmail rejects a direct write of a notification
// address outside the account's owned set.
func ValidateNotificationEmail(account *Account, secondaries []*Email, email string) error {
	if email == "" {
		return ErrNoEmptyString
	}

	if !OwnsEmail(account, secondaries, email) {
		return ErrNotificationEmailNotOwned.WithMetadata(map[string]any{
			"notification_email": email,
		})
	}

	return nil
}
