package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/recordkit/recordkit/pkg/query"
	"github.com/recordkit/recordkit/pkg/record"
)

// Envelope is the uniform response body. Success carries the payload under
// Data; failures carry a message and, for validation errors, per-field
// problems under Errors.
type Envelope struct {
	Code       int                 `json:"code"`
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       interface{}         `json:"data,omitempty"`
	Errors     []record.FieldError `json:"errors,omitempty"`
	Pagination *query.PageSpec     `json:"pagination,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful envelope (200 OK) with the payload
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{
		Code:    http.StatusOK,
		Success: true,
		Data:    data,
	})
}

// WriteSuccessMessage writes a successful envelope (200 OK) with a
// human-readable message alongside the payload
func WriteSuccessMessage(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{
		Code:    http.StatusOK,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteCreated writes a successful creation envelope (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, Envelope{
		Code:    http.StatusCreated,
		Success: true,
		Data:    data,
	})
}

// WriteCreatedMessage writes a creation envelope (201 Created) with a
// human-readable message alongside the payload
func WriteCreatedMessage(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, Envelope{
		Code:    http.StatusCreated,
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WritePage writes a successful list envelope with pagination metadata
func WritePage(w http.ResponseWriter, data interface{}, page query.PageSpec) error {
	return WriteJSON(w, http.StatusOK, Envelope{
		Code:       http.StatusOK,
		Success:    true,
		Data:       data,
		Pagination: &page,
	})
}

// WriteErrorMessage writes a failure envelope with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{
		Code:    status,
		Success: false,
		Message: message,
	})
}

// StatusForError maps a domain error to its HTTP status code. Unknown
// errors map to 500.
func StatusForError(err error) int {
	switch record.KindOf(err) {
	case record.KindValidation, record.KindInvalidTransition, record.KindNoEffectiveChange:
		return http.StatusUnprocessableEntity
	case record.KindLockConflict:
		return http.StatusConflict
	case record.KindDependencyBlocked, record.KindPermissionDenied:
		return http.StatusForbidden
	case record.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a failure envelope for a domain error, including
// per-field details when the error carries them. Storage errors are
// reported with a generic message so internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	WriteJSON(w, status, Envelope{
		Code:    status,
		Success: false,
		Message: message,
		Errors:  record.FieldsOf(err),
	})
}

// WriteBadRequest writes a malformed-request envelope (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a not found envelope (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteServiceUnavailable writes a service unavailable envelope (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}
