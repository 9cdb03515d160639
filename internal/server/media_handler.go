package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/server/middleware"
)

// handleMediaConfig reports whether the media gateway is configured. Clients
// probe this before offering audio recording.
func (s *Server) handleMediaConfig(w http.ResponseWriter, _ *http.Request) {
	available := s.mediaCfg != nil && s.mediaCfg.Available()
	s.successResponse(w, http.StatusOK, map[string]any{
		"available":       available,
		"max_upload_size": objectstore.MaxUploadSize,
	})
}

// handleMediaUpload proxies a single file upload to the object store.
// Validation failures are 400s; a missing gateway configuration is a 500
// because it is a deployment defect, not a client mistake.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if s.media == nil {
		err := &ErrMediaUnavailable{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxStoryFormSize); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read file")
		return
	}

	upload := objectstore.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	if err := objectstore.ValidateUpload(upload); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	result, err := s.media.Upload(r.Context(), upload, objectstore.Options{
		Folder: fmt.Sprintf("uploads/%s", userID),
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.successResponse(w, http.StatusCreated, result)
}
