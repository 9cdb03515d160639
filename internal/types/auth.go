// Package types provides type definitions for structured data used throughout the story platform.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Credential is the externally issued identity assertion for a signed-in
// account. It is not a full profile; profile data lives in the users
// collections keyed by the same ID.
type Credential struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// SignUpRequest represents the request to create a new account with password authentication.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"required,min=1"`
}

// SignInRequest represents the sign-in request.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest asks for a password-reset code to be issued for an email.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConfirmPasswordResetRequest redeems a reset code for a new password.
type ConfirmPasswordResetRequest struct {
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// SessionResponse is returned by register/login with the resolved credential
// and an access token.
type SessionResponse struct {
	Credential *Credential `json:"credential"`
	Token      string      `json:"token"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Validate validates the SignUpRequest using the validator.
func (r *SignUpRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SignInRequest using the validator.
func (r *SignInRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ResetPasswordRequest using the validator.
func (r *ResetPasswordRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ConfirmPasswordResetRequest using the validator.
func (r *ConfirmPasswordResetRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
