package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sagarc03/filevault"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type.
// Storage and unknown errors are logged; callers only see a fixed message.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, filevault.ErrAuthentication):
		WriteError(w, http.StatusUnauthorized, "authentication_required", "Missing or invalid caller identity")
	case errors.Is(err, filevault.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, "unauthorized", "Request signature rejected")
	case errors.Is(err, filevault.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "File does not exist or does not belong to user")
	case errors.Is(err, filevault.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "File id already exists, retry the request")
	case errors.Is(err, filevault.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", invalidInputMessage(err))
	default:
		slog.ErrorContext(r.Context(), "request error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// invalidInputMessage keeps the policy detail after the ErrInvalidInput marker
// and drops the operation prefixes.
func invalidInputMessage(err error) string {
	_, detail, ok := strings.Cut(err.Error(), filevault.ErrInvalidInput.Error()+": ")
	if !ok || detail == "" {
		return "Invalid request"
	}
	return detail
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
