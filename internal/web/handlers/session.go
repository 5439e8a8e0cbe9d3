package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/constants"
)

// multipartOverhead is the slack allowed on top of the image for form framing.
const multipartOverhead = 64 << 10

// SessionHandler exposes the capture state machine of the caller's session.
type SessionHandler struct {
	uploadLimit int64
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(uploadLimit int64) *SessionHandler {
	if uploadLimit <= 0 {
		uploadLimit = constants.MaxUploadSize
	}
	return &SessionHandler{uploadLimit: uploadLimit}
}

// Get returns the current view.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// Preview serves the frozen frame or uploaded image.
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	img, ok := s.Preview()
	if !ok {
		respondError(w, http.StatusNotFound, "no preview available")
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// StartCapture opens the camera.
func (h *SessionHandler) StartCapture(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	if err := s.StartCapture(r.Context()); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// Capture freezes the current frame and starts the analysis.
func (h *SessionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	if err := s.Capture(r.Context()); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.Snapshot())
}

// Upload analyzes the multipart "file" field.
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}

	maxBody := h.uploadLimit + multipartOverhead
	if r.ContentLength > maxBody {
		respondAppError(w, r, apperrors.FileTooLarge(""))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(h.uploadLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondAppError(w, r, apperrors.FileTooLarge(""))
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if err := s.UploadFile(r.Context(), file, header.Size); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, s.Snapshot())
}

// Cancel leaves scanning or analyzing.
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	if err := s.Cancel(); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// Reset returns to home.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	s.Reset()
	respondJSON(w, http.StatusOK, s.Snapshot())
}
