package engagement

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"
	"Omnipost/internal/core/platforms"
)

// errorResponse represents a standardized JSON error response
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error:   errorType,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// handleServiceError maps service-layer errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounts.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())

	case engagementCore.IsValidationError(err),
		errors.Is(err, accounts.ErrAccountDisabled),
		errors.Is(err, platforms.ErrAdapterNotFound):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())

	case platforms.IsAuthExpired(err), platforms.IsAuthRevoked(err):
		writeError(w, http.StatusUnauthorized, "PlatformAuthFailed", err.Error())

	case platforms.IsTransient(err):
		writeError(w, http.StatusBadGateway, "PlatformUnavailable", err.Error())

	default:
		// Don't leak internal error details to clients
		log.Printf("Unexpected error in engagement handler: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
