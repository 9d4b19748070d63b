package publish

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/publishing"
)

// CancelJobHandler handles job cancellation requests
type CancelJobHandler struct {
	service *publishing.Service
}

// NewCancelJobHandler creates a new handler for cancelling jobs
func NewCancelJobHandler(service *publishing.Service) *CancelJobHandler {
	return &CancelJobHandler{service: service}
}

// HandleCancel cancels a job that has not started publishing yet
// POST /publish/jobs/{jobID}/cancel
//
// Returns 204 on success, 409 when the job is past the cancellation window
func (h *CancelJobHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Missing job id")
		return
	}

	if err := requireJobOwner(r, h.service, jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.CancelJob(r.Context(), jobID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireJobOwner loads the job and hides it from non-owners
func requireJobOwner(r *http.Request, service *publishing.Service, jobID string) error {
	job, err := service.GetJob(r.Context(), jobID)
	if err != nil {
		return err
	}
	if job.UserID != middleware.GetUserID(r) {
		return publishing.ErrJobNotFound
	}
	return nil
}
