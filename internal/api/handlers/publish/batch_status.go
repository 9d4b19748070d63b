package publish

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/publishing"
)

// BatchStatusHandler handles batch status requests
type BatchStatusHandler struct {
	service *publishing.Service
}

// NewBatchStatusHandler creates a new handler for reading batch status
func NewBatchStatusHandler(service *publishing.Service) *BatchStatusHandler {
	return &BatchStatusHandler{service: service}
}

// HandleGet returns a flow's jobs and the derived aggregate status
// GET /publish/batches/{flowID}
func (h *BatchStatusHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	if flowID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing flow id")
		return
	}

	batch, err := h.service.GetBatchStatus(r.Context(), flowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// Flows are private to their submitter
	if !ownsBatch(middleware.GetUserID(r), batch) {
		writeError(w, http.StatusNotFound, "NotFound", publishing.ErrFlowNotFound.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(batch); err != nil {
		handleEncodeError(err)
	}
}

// ownsBatch reports whether every job in the batch belongs to the user.
// Jobs of one flow always share a submitter, so checking the first suffices,
// but verifying all is cheap.
func ownsBatch(userID string, batch *publishing.Batch) bool {
	if userID == "" {
		return false
	}
	for _, job := range batch.Jobs {
		if job.UserID != userID {
			return false
		}
	}
	return true
}
