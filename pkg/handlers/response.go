package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/elicita/delphi-engine/pkg/apperrors"
)

// ApiResponse is the standard envelope for JSON responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrInvalidRating):
		return http.StatusBadRequest, "invalid_rating"
	case errors.Is(err, apperrors.ErrCaseClosed):
		return http.StatusConflict, "case_closed"
	case errors.Is(err, apperrors.ErrAlreadyAnalyzed):
		return http.StatusConflict, "already_analyzed"
	case errors.Is(err, apperrors.ErrStaleRoundWrite):
		return http.StatusConflict, "stale_round"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusBadRequest, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
