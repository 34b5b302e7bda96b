// Package handlers provides HTTP response utilities for JSON APIs.
// These stateless functions standardize response formatting across handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// OwnerHeader carries the authenticated owner identifier. The identity
// provider upstream verifies it; this service trusts the value as-is.
const OwnerHeader = "X-Owner-Id"

// ErrNoOwner indicates a request arrived without an owner identity.
var ErrNoOwner = errors.New("missing owner identity")

// Owner extracts the authenticated owner id from the request.
func Owner(r *http.Request) (string, error) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		return "", ErrNoOwner
	}
	return owner, nil
}

// RespondJSON writes a JSON response with the given status code and data.
// It sets the Content-Type header to application/json.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs the error and writes a JSON error response.
// The response body contains {"error": "<error message>"}.
// Server-side failures log at error level; client errors log at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("handler error", "error", err, "status", status)
	} else {
		logger.Warn("request rejected", "error", err, "status", status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
