package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
)

func TestRespondJSON_SetsContentTypeAndStatus(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusCreated, map[string]string{"status": "ok"})

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondJSON(recorder, http.StatusOK, nil)

	// Body should be empty for nil data
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got '%s'", recorder.Body.String())
	}
}

func TestRespondError_ContainsErrorKey(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "something went wrong")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "something went wrong")
}

func TestRespondAppError_StatusPerKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		kind       string
	}{
		{"file too large", apperrors.FileTooLarge(""), http.StatusRequestEntityTooLarge, "file_too_large"},
		{"decode", apperrors.Decode("bad image", nil), http.StatusBadRequest, "decode_error"},
		{"camera", apperrors.CameraUnavailable("denied", nil), http.StatusServiceUnavailable, "camera_unavailable"},
		{"backend", apperrors.BackendUnavailable("down", nil), http.StatusBadGateway, "backend_unavailable"},
		{"malformed", apperrors.MalformedResponse("not json", nil), http.StatusBadGateway, "malformed_response"},
		{"validation", apperrors.Validation("score", nil), http.StatusBadGateway, "validation_error"},
		{"busy", apperrors.Busy("busy"), http.StatusConflict, "busy"},
		{"transition", apperrors.InvalidTransition("no"), http.StatusConflict, "invalid_transition"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)

			respondAppError(recorder, req, tc.err)

			assertStatusCode(t, recorder, tc.statusCode)
			assertErrorKind(t, recorder, tc.kind)
		})
	}
}

func TestRespondAppError_ContractViolationsShareMessage(t *testing.T) {
	malformed := httptest.NewRecorder()
	validation := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)

	respondAppError(malformed, req, apperrors.MalformedResponse("unexpected token", nil))
	respondAppError(validation, req, apperrors.Validation("score: out of range", nil))

	var a, b ErrorResponse
	parseJSONResponse(t, malformed, &a)
	parseJSONResponse(t, validation, &b)
	if a.Error != b.Error {
		t.Errorf("expected the same user message, got %q and %q", a.Error, b.Error)
	}
}

func TestRespondAppError_Uncategorized(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	respondAppError(recorder, req, errors.New("boom"))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	var result ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if result.Kind != "" {
		t.Errorf("expected no kind, got %q", result.Kind)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\r\nb\nc"); got != "abc" {
		t.Errorf("sanitizeForLog() = %q, want %q", got, "abc")
	}
}
