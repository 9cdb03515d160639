// Package server provides the HTTP REST API for the story platform.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/rkgupta29/assignment-story-creation-app/internal/auth"
	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
)

// ErrNotFound indicates a requested resource does not exist.
type ErrNotFound struct {
	Resource string
	Key      string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// ErrForbidden indicates the authenticated user does not own the resource.
type ErrForbidden struct{}

func (e *ErrForbidden) Error() string {
	return "you do not have access to this resource"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ErrMediaUnavailable indicates the media gateway is not configured.
type ErrMediaUnavailable struct{}

func (e *ErrMediaUnavailable) Error() string {
	return "media storage is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *auth.ErrEmailAlreadyExists:
		return http.StatusConflict
	case *auth.ErrInvalidCredentials, *auth.ErrInvalidResetCode:
		return http.StatusUnauthorized
	case *auth.ErrCredentialNotFound, *ErrNotFound:
		return http.StatusNotFound
	case *ErrForbidden:
		return http.StatusForbidden
	case *ErrValidation, *objectstore.ErrEmptyFile, *objectstore.ErrFileTooLarge,
		*objectstore.ErrUnsupportedAudioFormat:
		return http.StatusBadRequest
	case *ErrMediaUnavailable:
		return http.StatusInternalServerError
	default:
		if _, ok := err.(validator.ValidationErrors); ok {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
