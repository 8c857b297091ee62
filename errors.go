package identity

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeSignupDisabled    = "SIGNUP_DISABLED"
	TextCodeMissingClaim      = "MISSING_CLAIM"
	TextCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodeMissingUsername   = "MISSING_USERNAME"
)

// ErrSignupDisabled is returned when reconciliation would create a user
// while signup is administratively disabled. It is a structured,
// user-facing denial, not an internal failure.
var ErrSignupDisabled = errors.New("signup is disabled", errors.CategoryAuth).
	WithTextCode(TextCodeSignupDisabled)

// ErrDuplicateIdentity signals that an insert hit the
// (external_id, login_provider) uniqueness constraint. Callers treat it
// as "someone else won the race" and re-fetch.
var ErrDuplicateIdentity = errors.New("external identity already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity)

// ErrMismatchedHashAndPassword is the structured form of a bcrypt
// mismatch. It never crosses the Authorize boundary.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMissingUsername is a caller-contract violation, not a login
// failure: Authorize must never be reached without a username.
var ErrMissingUsername = errors.New("username is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingUsername)

// NewMissingClaimError reports a token missing a required claim. This
// indicates a misconfigured provider and is surfaced as internal.
func NewMissingClaimError(claim string) *errors.Error {
	return errors.New(fmt.Sprintf("token is missing required claim %q", claim), errors.CategoryInternal).
		WithTextCode(TextCodeMissingClaim).
		WithMetadata(map[string]any{"claim": claim})
}

// IsSignupDisabled reports whether err is the signup-disabled denial.
func IsSignupDisabled(err error) bool {
	return hasTextCode(err, TextCodeSignupDisabled)
}

// IsMissingClaim reports whether err is a missing-claim failure.
func IsMissingClaim(err error) bool {
	return hasTextCode(err, TextCodeMissingClaim)
}

// IsDuplicateIdentity reports whether err is a uniqueness-constraint
// violation on the external identity pair.
func IsDuplicateIdentity(err error) bool {
	return hasTextCode(err, TextCodeDuplicateIdentity)
}

// IsInvalidCredentials reports whether err is a password mismatch.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCreds)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
