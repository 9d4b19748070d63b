package publish

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/core/publishing"
)

// RescheduleJobHandler handles schedule changes for queued jobs
type RescheduleJobHandler struct {
	service *publishing.Service
}

// NewRescheduleJobHandler creates a new handler for rescheduling jobs
func NewRescheduleJobHandler(service *publishing.Service) *RescheduleJobHandler {
	return &RescheduleJobHandler{service: service}
}

// RescheduleInput carries the new publish time
type RescheduleInput struct {
	ScheduledAt time.Time `json:"scheduledAt"`
}

// HandleReschedule moves a queued job's publish time
// POST /publish/jobs/{jobID}/reschedule
func (h *RescheduleJobHandler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing job id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4*1024)

	var input RescheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}
	if input.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "scheduledAt is required")
		return
	}

	if err := requireJobOwner(r, h.service, jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.RescheduleJob(r.Context(), jobID, input.ScheduledAt); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlePublishNow pulls a queued job's schedule to the present
// POST /publish/jobs/{jobID}/publish-now
func (h *RescheduleJobHandler) HandlePublishNow(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing job id")
		return
	}

	if err := requireJobOwner(r, h.service, jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.PublishNow(r.Context(), jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
