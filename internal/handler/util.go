// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/service"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps service and store errors to HTTP responses.
// Unclassified errors are logged in full and redacted from the caller.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, store.ErrPageConnected):
		writeError(w, http.StatusBadRequest, "Page already connected")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fallback+" not found")
	default:
		log.Error(fallback+" request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Database error")
	}
}
