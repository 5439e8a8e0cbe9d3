package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/xiangxin/internal/ai"
	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/capture"
)

// AnalyzeHandler runs one analysis without touching any session.
type AnalyzeHandler struct {
	analyzer    ai.Analyzer
	uploadLimit int64
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(analyzer ai.Analyzer, uploadLimit int64) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, uploadLimit: uploadLimit}
}

// AnalyzeRequest carries a base64 image, optionally as a data URL.
type AnalyzeRequest struct {
	Image string `json:"image"`
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	// Base64 inflates by 4/3; leave room for the JSON envelope.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit*4/3+4096)

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondAppError(w, r, apperrors.FileTooLarge(""))
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	img, err := capture.FromBase64(req.Image, h.uploadLimit)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	if h.analyzer == nil {
		respondAppError(w, r, apperrors.BackendUnavailable("no analyzer configured", nil))
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), img)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
