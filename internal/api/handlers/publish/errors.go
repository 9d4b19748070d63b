package publish

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"Omnipost/internal/core/accounts"
	"Omnipost/internal/core/platforms"
	"Omnipost/internal/core/publishing"
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

func handleEncodeError(err error) {
	log.Printf("Failed to encode response: %v", err)
}

// handleServiceError maps service-layer errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case publishing.IsNotFound(err), errors.Is(err, accounts.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())

	case errors.Is(err, publishing.ErrNotCancellable),
		errors.Is(err, publishing.ErrNotReschedulable):
		writeError(w, http.StatusConflict, "Conflict", err.Error())

	case errors.Is(err, publishing.ErrEmptyBatch),
		errors.Is(err, accounts.ErrAccountDisabled),
		errors.Is(err, platforms.ErrInvalidOptions),
		errors.Is(err, platforms.ErrAdapterNotFound):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())

	default:
		// Don't leak internal error details to clients
		log.Printf("Unexpected error in publish handler: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
