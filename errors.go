package accounts

import (
	stderrors "errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUsernameTaken        = "USERNAME_TAKEN"
	textCodeUsernameReserved     = "USERNAME_RESERVED"
	textCodeEmailTaken           = "EMAIL_TAKEN"
	textCodeEmailNotOwned        = "NOTIFICATION_EMAIL_NOT_OWNED"
	textCodeGenerationExhausted  = "USERNAME_GENERATION_EXHAUSTED"
	textCodeDuplicateIdentity    = "DUPLICATE_IDENTITY"
	textCodeProjectsLimitInvalid = "PROJECTS_LIMIT_INVALID"
)

// ErrUsernameTaken is returned when a username collides with an existing
// account or namespace path.
var ErrUsernameTaken = goerrors.New("username has already been taken", goerrors.CategoryValidation).
	WithTextCode(textCodeUsernameTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrUsernameReserved is returned for candidates on the reserved path denylist
var ErrUsernameReserved = goerrors.New("username is a reserved word", goerrors.CategoryValidation).
	WithTextCode(textCodeUsernameReserved).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when an email collides with another account's
// primary or secondary address.
var ErrEmailTaken = goerrors.New("email has already been taken", goerrors.CategoryValidation).
	WithTextCode(textCodeEmailTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrNotificationEmailNotOwned rejects notification addresses outside the
// account's owned email set.
var ErrNotificationEmailNotOwned = goerrors.New("not an email you own", goerrors.CategoryValidation).
	WithTextCode(textCodeEmailNotOwned).
	WithCode(goerrors.CodeBadRequest)

// ErrUsernameGenerationExhausted is returned when the suffix loop gives up.
// No fallback identity is fabricated.
var ErrUsernameGenerationExhausted = goerrors.New("unable to generate a unique username", goerrors.CategoryOperation).
	WithTextCode(textCodeGenerationExhausted)

// ErrProjectsLimitInvalid rejects negative quota values
var ErrProjectsLimitInvalid = goerrors.New("projects limit must be zero or greater", goerrors.CategoryValidation).
	WithTextCode(textCodeProjectsLimitInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrAccessLevelInvalid rejects membership grants outside the known levels
var ErrAccessLevelInvalid = goerrors.New("access level is not valid", goerrors.CategoryValidation).
	WithTextCode("ACCESS_LEVEL_INVALID").
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned when a requested status change names a
// state outside the lifecycle graph.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_ACCOUNT_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString is the error for empty required strings
var ErrNoEmptyString = goerrors.New("value should not be an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the bcrypt mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsUniqueViolation checks whether the store rejected a write at the
// unique-constraint layer. The application-level reservation checks are an
// optimization; the store index is the authoritative backstop.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// TranslateConstraintViolation converts a store-level unique constraint
// error into the validation error callers are expected to re-prompt on.
// Other errors pass through untouched.
func TranslateConstraintViolation(err error) error {
	if err == nil {
		return nil
	}

	if !IsUniqueViolation(err) {
		return err
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "identity already taken").
		WithTextCode(textCodeDuplicateIdentity).
		WithCode(goerrors.CodeConflict)
}

// FormatValidationErrorToMap flattens collected validation failures into
// field->message pairs so a caller can present every problem in one response.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var ve validation.Errors
	if stderrors.As(err, &ve) {
		for field, ferr := range ve {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		for field, msg := range richErr.Metadata {
			if s, ok := msg.(string); ok {
				out[field] = s
			}
		}
		if len(out) > 0 {
			return out
		}
		out["base"] = richErr.Message
		return out
	}

	out["base"] = err.Error()
	return out
}
