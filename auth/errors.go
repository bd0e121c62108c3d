package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeAuthRequired marks requests carrying no bearer token
	TextCodeAuthRequired = "AUTH_REQUIRED"
	// TextCodeTokenExpired marks structurally valid but expired tokens
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeInvalidToken marks unparseable or badly signed tokens
	TextCodeInvalidToken = "INVALID_TOKEN"
	// TextCodeTokenRevoked marks tokens whose session has been revoked
	TextCodeTokenRevoked = "TOKEN_REVOKED"
)

// ErrInvalidCredentials covers both unknown email and wrong password: login
// failures are indistinguishable on purpose so callers cannot enumerate users.
var ErrInvalidCredentials = goerrors.New("Invalid email or password.", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when registering an email that already exists
var ErrEmailTaken = goerrors.New("User email already exists", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is the rich error for expired access tokens
var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the rich error for unparseable or badly signed tokens
var ErrTokenMalformed = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked is returned when a signature-valid token belongs to a
// session that was explicitly revoked.
var ErrTokenRevoked = goerrors.New("Token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenExpired is returned when a refresh token's signature expired
var ErrRefreshTokenExpired = goerrors.New("Refresh token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenInvalid covers bad signatures and wrong token types
var ErrRefreshTokenInvalid = goerrors.New("Invalid refresh token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionInvalidated is returned when a refresh token has no live ledger
// row: revoked, superseded by rotation, or expired in the store.
var ErrSessionInvalidated = goerrors.New("Token has been invalidated or expired", goerrors.CategoryAuth).
	WithTextCode("SESSION_INVALIDATED").
	WithCode(goerrors.CodeUnauthorized)

// ErrResetTokenInvalid collapses not-found, expired, and already-used reset
// tokens into one message so token guessing gets no feedback.
var ErrResetTokenInvalid = goerrors.New("Invalid or expired reset token", goerrors.CategoryValidation).
	WithTextCode("RESET_TOKEN_INVALID").
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned for missing or inactive users on flows that
// are not enumeration sensitive.
var ErrUserNotFound = goerrors.New("User not found or inactive", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrApplicationNotFound is returned by SSO login for missing or inactive
// applications.
var ErrApplicationNotFound = goerrors.New("Application not found or inactive", goerrors.CategoryNotFound).
	WithTextCode("APPLICATION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString guards hash input
var ErrNoEmptyString = goerrors.New("value must not be an empty string", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error
var ErrMismatchedHashAndPassword = goerrors.New("hashed password mismatch", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// wrapStoreError passes already-classified rich errors through unchanged and
// re-wraps raw store faults as internal.
func wrapStoreError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
