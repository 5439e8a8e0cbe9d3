// Package apperrors defines the error taxonomy shared by acquisition, the
// analysis pipeline and the capture session.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes a failure so callers can react without string matching.
type Kind string

// Kind constants.
const (
	KindCameraUnavailable  Kind = "camera_unavailable"
	KindFileTooLarge       Kind = "file_too_large"
	KindDecode             Kind = "decode_error"
	KindBackendUnavailable Kind = "backend_unavailable"
	KindMalformedResponse  Kind = "malformed_response"
	KindValidation         Kind = "validation_error"
	KindBusy               Kind = "busy"
	KindInvalidTransition  Kind = "invalid_transition"
)

// Error is a categorized application error.
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: status, Cause: cause}
}

// CameraUnavailable reports a permission, secure-context or device failure.
func CameraUnavailable(message string, cause error) *Error {
	return newError(KindCameraUnavailable, http.StatusServiceUnavailable, message, cause)
}

// FileTooLarge reports an upload over the configured limit.
func FileTooLarge(message string) *Error {
	return newError(KindFileTooLarge, http.StatusRequestEntityTooLarge, message, nil)
}

// Decode reports input that is not a decodable image.
func Decode(message string, cause error) *Error {
	return newError(KindDecode, http.StatusBadRequest, message, cause)
}

// BackendUnavailable reports a transport or service failure of the inference backend.
func BackendUnavailable(message string, cause error) *Error {
	return newError(KindBackendUnavailable, http.StatusBadGateway, message, cause)
}

// MalformedResponse reports a backend payload that is not valid JSON.
func MalformedResponse(message string, cause error) *Error {
	return newError(KindMalformedResponse, http.StatusBadGateway, message, cause)
}

// Validation reports a syntactically valid payload that breaks the report contract.
func Validation(message string, cause error) *Error {
	return newError(KindValidation, http.StatusBadGateway, message, cause)
}

// Busy reports a command rejected because an analysis is in flight.
func Busy(message string) *Error {
	return newError(KindBusy, http.StatusConflict, message, nil)
}

// InvalidTransition reports a command that is not valid in the current state.
func InvalidTransition(message string) *Error {
	return newError(KindInvalidTransition, http.StatusConflict, message, nil)
}

// As extracts the *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether any error in the chain has the given kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// KindOf returns the kind of err, or an empty Kind for uncategorized errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

// StatusCode returns the HTTP status that best represents err.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

var userMessages = map[Kind]string{
	KindCameraUnavailable:  "The camera could not be opened. Allow camera access and make sure the page is served over HTTPS.",
	KindFileTooLarge:       "The photo is too large. Please choose an image under 5 MB.",
	KindDecode:             "The photo could not be read. Please choose a clear JPEG or PNG image.",
	KindBackendUnavailable: "The reading service is unavailable right now. Please try again.",
	KindMalformedResponse:  "The reading could not be completed. Please try again.",
	KindValidation:         "The reading could not be completed. Please try again.",
	KindBusy:               "A reading is already in progress.",
	KindInvalidTransition:  "That action is not available right now.",
}

// UserMessage converts err into the single message shown to the user.
// Backend contract violations deliberately share one generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		if appErr.Kind == KindFileTooLarge && appErr.Message != "" {
			return appErr.Message
		}
		if msg, ok := userMessages[appErr.Kind]; ok {
			return msg
		}
	}
	return "Something went wrong. Please try again."
}
