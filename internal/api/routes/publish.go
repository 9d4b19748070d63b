package routes

import (
	"Omnipost/internal/api/handlers/publish"
	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/publishing"

	"github.com/go-chi/chi/v5"
)

// RegisterPublishRoutes registers the batch publishing endpoints on the
// router. Every endpoint requires authentication: flows and jobs are
// private to the user who submitted them.
func RegisterPublishRoutes(r chi.Router, service *publishing.Service, authMiddleware *middleware.AuthMiddleware) {
	submitHandler := publish.NewSubmitBatchHandler(service)
	statusHandler := publish.NewBatchStatusHandler(service)
	watchHandler := publish.NewWatchBatchHandler(service)
	cancelHandler := publish.NewCancelJobHandler(service)
	rescheduleHandler := publish.NewRescheduleJobHandler(service)

	r.Route("/publish", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		// Submit one piece of content to many accounts
		r.Post("/batches", submitHandler.HandleSubmit)

		// Batch progress: point-in-time snapshot or live websocket stream
		r.Get("/batches/{flowID}", statusHandler.HandleGet)
		r.Get("/batches/{flowID}/watch", watchHandler.HandleWatch)

		// Per-job controls, valid only while the job is still queued
		// (publish-now, reschedule) or not yet publishing (cancel)
		r.Post("/jobs/{jobID}/cancel", cancelHandler.HandleCancel)
		r.Post("/jobs/{jobID}/reschedule", rescheduleHandler.HandleReschedule)
		r.Post("/jobs/{jobID}/publish-now", rescheduleHandler.HandlePublishNow)
	})
}
