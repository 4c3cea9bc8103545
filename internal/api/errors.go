package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; the connection may be gone
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// statusForError maps device and dispatcher errors to an HTTP status and
// error code. Unknown errors are internal.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, action.ErrInvalidInput),
		errors.Is(err, lock.ErrInvalidSlot),
		errors.Is(err, lock.ErrInvalidPIN),
		errors.Is(err, lock.ErrInvalidStatus),
		errors.Is(err, lock.ErrInvalidSchedule),
		errors.Is(err, lock.ErrInvalidPropertyValue):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, action.ErrUnknownAction),
		errors.Is(err, lock.ErrReadOnlyProperty):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, action.ErrActionNotFound),
		errors.Is(err, lock.ErrUnknownProperty):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, action.ErrActionInProgress):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, action.ErrQueueFull),
		errors.Is(err, action.ErrDispatcherClosed):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeDomainError writes err using statusForError. Internal errors are
// logged and replaced with a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err,
			"request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}
