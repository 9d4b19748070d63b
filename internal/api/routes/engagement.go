package routes

import (
	"Omnipost/internal/api/handlers/engagement"
	"Omnipost/internal/api/middleware"
	"Omnipost/internal/core/accounts"
	engagementCore "Omnipost/internal/core/engagement"

	"github.com/go-chi/chi/v5"
)

// RegisterEngagementRoutes registers the comment aggregation endpoints on
// the router. All endpoints act with the caller's own platform tokens and
// require authentication.
func RegisterEngagementRoutes(r chi.Router, service *engagementCore.Service, accountRepo accounts.Repository, authMiddleware *middleware.AuthMiddleware) {
	getCommentsHandler := engagement.NewGetCommentsHandler(service, accountRepo)
	getRepliesHandler := engagement.NewGetRepliesHandler(service, accountRepo)
	createCommentHandler := engagement.NewCreateCommentHandler(service, accountRepo)
	createReplyHandler := engagement.NewCreateReplyHandler(service, accountRepo)

	r.Route("/engagement/accounts/{accountID}", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		// Comments on a published object
		r.Get("/targets/{targetID}/comments", getCommentsHandler.HandleGet)
		r.Post("/targets/{targetID}/comments", createCommentHandler.HandleCreate)

		// Replies under one comment
		r.Get("/comments/{commentID}/replies", getRepliesHandler.HandleGet)
		r.Post("/comments/{commentID}/replies", createReplyHandler.HandleCreate)
	})
}
