package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternal        = "internal_error"
	ErrCodeUnknownForm     = "unknown_form"
	ErrCodeUnknownLocation = "unknown_location"
	ErrCodeUnavailable     = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
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

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// dialogueError maps a dialogue service error onto a status and code.
func dialogueError(err error) (int, string) {
	switch {
	case errors.Is(err, dialogue.ErrConversationNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, dialogue.ErrUnknownForm):
		return http.StatusBadRequest, ErrCodeUnknownForm
	case errors.Is(err, dialogue.ErrNotResolved):
		return http.StatusConflict, ErrCodeConflict
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeDialogueError writes the response for a dialogue service error.
func writeDialogueError(w http.ResponseWriter, err error) {
	status, code := dialogueError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, code, msg)
}
