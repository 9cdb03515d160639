package server

import (
	"encoding/json"
	"net/http"

	"github.com/rkgupta29/assignment-story-creation-app/internal/server/middleware"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// handleRegister creates a new account and returns a session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	cred, err := s.authService.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	session, err := s.newSession(cred)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.successResponse(w, http.StatusCreated, session)
}

// handleLogin verifies credentials and returns a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	cred, err := s.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	session, err := s.newSession(cred)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	s.successResponse(w, http.StatusOK, session)
}

// handleLogout signs out through the session store so the auth-state feed
// and the session snapshot stay in step. Tokens are stateless; the client
// discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessionStore.SignOut(r.Context())
	if msg := s.sessionStore.State().Error; msg != "" {
		s.errorResponse(w, http.StatusInternalServerError, msg)
		return
	}
	s.successResponse(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// handleSession returns the session store's snapshot: the most recent
// auth-state transition with its resolved profile.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	st := s.sessionStore.State()
	s.successResponse(w, http.StatusOK, map[string]any{
		"loading":          st.Loading,
		"is_authenticated": st.IsAuthenticated,
		"credential":       st.Credential,
		"profile":          st.Profile,
		"error":            st.Error,
	})
}

// handleResetPassword issues a password-reset code for an email.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req types.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	code, err := s.authService.ResetPassword(r.Context(), req.Email)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	// Without an email provider the code is returned directly. A real
	// deployment would deliver it out of band instead.
	s.successResponse(w, http.StatusOK, map[string]string{"reset_code": code})
}

// handleConfirmReset redeems a reset code for a new password.
func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req types.ConfirmPasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.authService.ConfirmPasswordReset(r.Context(), req.Code, req.NewPassword); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// handleMe returns the authenticated credential.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cred, err := s.authService.GetCredential(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if cred == nil {
		s.errorResponse(w, http.StatusNotFound, "credential not found")
		return
	}
	s.successResponse(w, http.StatusOK, cred)
}

func (s *Server) newSession(cred *types.Credential) (*types.SessionResponse, error) {
	token, expiresAt, err := s.authService.Tokens().GenerateToken(cred.ID)
	if err != nil {
		return nil, err
	}
	return &types.SessionResponse{Credential: cred, Token: token, ExpiresAt: expiresAt}, nil
}
