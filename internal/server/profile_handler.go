package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rkgupta29/assignment-story-creation-app/internal/profile"
	"github.com/rkgupta29/assignment-story-creation-app/internal/server/middleware"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// profileResponse pairs a profile with its recomputed completion status.
type profileResponse struct {
	Profile    *types.CandidateProfile       `json:"profile"`
	Completion types.ProfileCompletionStatus `json:"completion"`
}

// handleGetProfile returns the caller's candidate profile with completion.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	candidateID, err := s.requireOwnProfile(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	p, err := s.profileRepo.Load(r.Context(), candidateID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if p == nil {
		err := &ErrNotFound{Resource: "profile", Key: candidateID}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusOK, profileResponse{Profile: p, Completion: profile.WeightedCompletion(p)})
}

// handleUpdateProfile replaces the caller's profile wholesale. Completion is
// recomputed and persisted alongside the data, never trusted from the client.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	candidateID, err := s.requireOwnProfile(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var p types.CandidateProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := profile.WeightedCompletion(&p)
	p.ProfileCompletionPercentage = status.Percentage
	p.IsProfileComplete = status.Overall

	if err := s.profileRepo.Save(r.Context(), candidateID, &p); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusOK, profileResponse{Profile: &p, Completion: status})
}

// handleProfileCompletion returns the completion breakdown without the
// profile payload.
func (s *Server) handleProfileCompletion(w http.ResponseWriter, r *http.Request) {
	candidateID, err := s.requireOwnProfile(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	p, err := s.profileRepo.Load(r.Context(), candidateID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if p == nil {
		p = &types.CandidateProfile{}
	}
	s.successResponse(w, http.StatusOK, profile.WeightedCompletion(p))
}

// handleProfileStep merges one wizard step into the profile. Each request
// runs a wizard positioned at the named step, so the merge, recompute, and
// persist semantics live in one place. An empty body is a valid skip that
// leaves the section incomplete.
func (s *Server) handleProfileStep(w http.ResponseWriter, r *http.Request) {
	candidateID, err := s.requireOwnProfile(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	step, ok := profile.ParseStep(r.PathValue("step"))
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "unknown profile step")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	data, err := profile.DecodeStepData(step, body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid step payload")
		return
	}

	wiz := profile.NewWizard(s.profileRepo)
	if err := wiz.LoadProfile(r.Context(), candidateID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	defer wiz.Close()
	wiz.JumpTo(step)

	done, err := wiz.Advance(r.Context(), data)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	draft := wiz.Draft()
	s.successResponse(w, http.StatusOK, map[string]any{
		"profile":    &draft,
		"completion": wiz.Completion(),
		"step":       step.String(),
		"last_step":  done,
	})
}

// requireOwnProfile verifies the path candidate ID matches the caller.
func (s *Server) requireOwnProfile(r *http.Request) (string, error) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		return "", &ErrForbidden{}
	}
	candidateID := r.PathValue("id")
	if candidateID != userID {
		return "", &ErrForbidden{}
	}
	return candidateID, nil
}
