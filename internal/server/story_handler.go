package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/rkgupta29/assignment-story-creation-app/internal/server/middleware"
	"github.com/rkgupta29/assignment-story-creation-app/internal/story"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// maxStoryFormSize bounds multipart story submissions. The audio gateway
// enforces its own per-file ceiling on top of this.
const maxStoryFormSize = 60 * 1024 * 1024

// handleListStories returns all stories, newest first. An optional author
// query parameter scopes the feed to one author.
func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	var (
		stories []types.Story
		err     error
	)
	if authorID := r.URL.Query().Get("author"); authorID != "" {
		stories, err = s.storyRepo.ListByAuthor(r.Context(), authorID)
	} else {
		stories, err = s.storyRepo.ListAll(r.Context())
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if stories == nil {
		stories = []types.Story{}
	}
	s.successResponse(w, http.StatusOK, stories)
}

// handleGetStory returns a single story by slug.
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	st, err := s.storyRepo.GetBySlug(r.Context(), slug)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if st == nil {
		err := &ErrNotFound{Resource: "story", Key: slug}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusOK, st)
}

// handleCreateStory creates a text or voice story. Multipart submissions may
// attach an audio file under the "audio" field; voice stories without a
// transcript get one from the transcription service when audio is present.
func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	input, err := s.decodeStoryInput(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if input.Type == types.StoryVoice && input.Audio != nil && input.AudioTranscript == "" {
		text, terr := s.transcriber.Transcribe(r.Context(), input.Audio)
		if terr != nil {
			// A failed transcription does not block publishing.
			log.Printf("[transcript] transcription failed: %v", terr)
		} else {
			if polished, perr := s.transcriber.Polish(r.Context(), text); perr != nil {
				log.Printf("[transcript] polish failed, keeping raw transcript: %v", perr)
			} else {
				text = polished
			}
			input.AudioTranscript = text
		}
	}

	authorName := s.resolveAuthorName(r, userID)
	st, err := s.storyStore.Create(r.Context(), *input, userID, authorName, nil)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusCreated, st)
}

// handleUpdateStory applies a partial update to a story the caller owns.
func (s *Server) handleUpdateStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := r.PathValue("id")

	st, err := s.requireOwnedStory(r, id, userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var delta types.StoryUpdate
	if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.storyStore.Update(r.Context(), id, &delta); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	updated, err := s.storyRepo.GetByID(r.Context(), id)
	if err != nil || updated == nil {
		updated = st
	}
	s.successResponse(w, http.StatusOK, updated)
}

// handleDeleteStory removes a story the caller owns.
func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := r.PathValue("id")

	if _, err := s.requireOwnedStory(r, id, userID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if err := s.storyStore.Remove(r.Context(), id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusOK, map[string]string{"message": "story deleted"})
}

// handleExportStory renders a story to a printable PDF.
func (s *Server) handleExportStory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	st, err := s.storyRepo.GetBySlug(r.Context(), slug)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if st == nil {
		err := &ErrNotFound{Resource: "story", Key: slug}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	pdf, err := s.exporter.PDF(r.Context(), st)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "PDF export failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", st.Slug+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Printf("Error writing PDF response: %v", err)
	}
}

// handleStoryStream streams the live story feed over SSE. Each event carries
// the full newest-first list, mirroring what a subscribing client would hold.
func (s *Server) handleStoryStream(w http.ResponseWriter, r *http.Request) {
	s.streamOnce.Do(func() {
		// The subscription outlives any single request.
		if err := s.storyStore.Initialize(context.Background(), story.Scope{}); err != nil {
			log.Printf("[stories] stream initialization failed: %v", err)
		}
	})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	events := make(chan []types.Story, 8)
	unwatch := s.storyStore.Watch(func(stories []types.Story) {
		select {
		case events <- stories:
		default:
			// Drop the push when the client is slow; the next one
			// carries the full snapshot anyway.
		}
	})
	defer unwatch()

	if err := sse.WriteEvent("stories", s.storyStore.Stories()); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case stories := <-events:
			if err := sse.WriteEvent("stories", stories); err != nil {
				return
			}
		}
	}
}

// decodeStoryInput accepts JSON bodies and multipart forms. Multipart is the
// only way to attach audio.
func (s *Server) decodeStoryInput(r *http.Request) (*types.CreateStoryInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var input types.CreateStoryInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return nil, fmt.Errorf("invalid request body")
		}
		return &input, nil
	}

	if err := r.ParseMultipartForm(maxStoryFormSize); err != nil {
		return nil, fmt.Errorf("invalid multipart form")
	}

	storyType, err := types.ParseStoryType(r.FormValue("type"))
	if err != nil {
		return nil, err
	}
	input := &types.CreateStoryInput{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Content:         r.FormValue("content"),
		Type:            storyType,
		AudioTranscript: r.FormValue("audio_transcript"),
	}

	file, header, err := r.FormFile("audio")
	if err == http.ErrMissingFile {
		return input, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid audio file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file")
	}
	input.Audio = &types.AudioUpload{
		FileName: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	return input, nil
}

// requireOwnedStory loads a story by ID and verifies ownership.
func (s *Server) requireOwnedStory(r *http.Request, id, userID string) (*types.Story, error) {
	st, err := s.storyRepo.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, &ErrNotFound{Resource: "story", Key: id}
	}
	if st.AuthorID != userID {
		return nil, &ErrForbidden{}
	}
	return st, nil
}

// resolveAuthorName prefers the candidate profile's full name, then the
// credential display name, then the email local part.
func (s *Server) resolveAuthorName(r *http.Request, userID string) string {
	if p, err := s.profileRepo.Load(r.Context(), userID); err == nil && p != nil && p.FullName != "" {
		return p.FullName
	}
	cred, err := s.authService.GetCredential(r.Context(), userID)
	if err != nil || cred == nil {
		return "Anonymous"
	}
	if cred.DisplayName != "" {
		return cred.DisplayName
	}
	if at := strings.Index(cred.Email, "@"); at > 0 {
		return cred.Email[:at]
	}
	return "Anonymous"
}
