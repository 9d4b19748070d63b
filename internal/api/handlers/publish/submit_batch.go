package publish

import (
	"encoding/json"
	"net/http"
	"time"

	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/publishing"
)

// SubmitBatchHandler handles batch submission requests
type SubmitBatchHandler struct {
	service *publishing.Service
}

// NewSubmitBatchHandler creates a new handler for submitting publish batches
func NewSubmitBatchHandler(service *publishing.Service) *SubmitBatchHandler {
	return &SubmitBatchHandler{service: service}
}

// SubmitBatchInput is the request body for a batch submission. ScheduledAt
// is optional; omitted means publish as soon as a worker is free.
type SubmitBatchInput struct {
	Targets     []publishing.SubmitTarget `json:"targets"`
	ScheduledAt *time.Time                `json:"scheduledAt,omitempty"`
}

// SubmitBatchOutput returns the flow id grouping the created jobs
type SubmitBatchOutput struct {
	FlowID string `json:"flowId"`
}

// HandleSubmit handles batch submission requests
// POST /publish/batches
//
// Request body: { "targets": [ { "accountId": "...", "payload": {...} } ], "scheduledAt": "..." }
// Response: { "flowId": "..." }
func (h *SubmitBatchHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	// Limit request body size to prevent DoS attacks
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)

	var input SubmitBatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	var scheduledAt time.Time
	if input.ScheduledAt != nil {
		scheduledAt = *input.ScheduledAt
	}

	flowID, err := h.service.SubmitBatch(r.Context(), userID, input.Targets, scheduledAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(SubmitBatchOutput{FlowID: flowID}); err != nil {
		handleEncodeError(err)
	}
}
