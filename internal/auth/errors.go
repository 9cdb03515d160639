// Package auth owns the credential lifecycle: sign-up, sign-in, sign-out,
// password reset, access tokens, and the auth-state change feed the session
// store subscribes to.
package auth

import (
	"errors"
	"fmt"
)

// ErrEmailAlreadyExists indicates the email is already registered.
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates a failed sign-in. The message is
// deliberately generic for both unknown emails and wrong passwords.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrCredentialNotFound indicates no credential exists for an id or email.
type ErrCredentialNotFound struct {
	Key string
}

func (e *ErrCredentialNotFound) Error() string {
	return fmt.Sprintf("credential not found: %s", e.Key)
}

// ErrInvalidResetCode indicates a password-reset code that is unknown or
// already redeemed.
type ErrInvalidResetCode struct{}

func (e *ErrInvalidResetCode) Error() string {
	return "invalid or expired reset code"
}

// FormatAuthError maps auth failures to the strings shown to end users.
// Unexpected faults collapse to a generic message so internals never leak.
func FormatAuthError(err error) string {
	if err == nil {
		return ""
	}
	var emailExists *ErrEmailAlreadyExists
	var invalidCreds *ErrInvalidCredentials
	var notFound *ErrCredentialNotFound
	var badCode *ErrInvalidResetCode
	switch {
	case errors.As(err, &emailExists):
		return "An account with this email already exists."
	case errors.As(err, &invalidCreds):
		return "Incorrect email or password. Please try again."
	case errors.As(err, &notFound):
		return "No account found for this email."
	case errors.As(err, &badCode):
		return "This password reset link is invalid or has expired."
	default:
		return "Something went wrong. Please try again."
	}
}
